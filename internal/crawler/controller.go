package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/redoracle/webdoc/internal/extract"
	"github.com/redoracle/webdoc/internal/fetch"
	"github.com/redoracle/webdoc/internal/frontier"
	"github.com/redoracle/webdoc/internal/imaging"
	weblog "github.com/redoracle/webdoc/internal/log"
	"github.com/redoracle/webdoc/internal/model"
	"github.com/redoracle/webdoc/internal/robots"
	"github.com/redoracle/webdoc/internal/scope"
	"github.com/redoracle/webdoc/internal/state"
)

// State is the controller's lifecycle phase.
type State int

const (
	// StateInit means the controller has not started yet.
	StateInit State = iota

	// StateRunning means the crawl loop is active.
	StateRunning

	// StatePaused means the crawl stopped on cancellation with its
	// progress checkpointed for resume.
	StatePaused

	// StateDone means the frontier was exhausted and all results are
	// final.
	StateDone

	// StateFailed means the crawl aborted on an unrecoverable error.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "init"
	}
}

// ErrCheckpoint is returned when crawl state repeatedly fails to
// persist. Losing checkpoints silently would break the pause/resume
// contract, so the crawl aborts instead.
var ErrCheckpoint = errors.New("crawl state checkpointing failed")

// maxCheckpointFailures is how many consecutive checkpoint failures
// are tolerated before the crawl aborts.
const maxCheckpointFailures = 3

// Store persists crawl snapshots. Implemented by state.Store; the
// interface keeps the controller testable without a database file.
type Store interface {
	Save(ctx context.Context, st *model.CrawlState) error
	Load(ctx context.Context) (*model.CrawlState, error)
	Clear(ctx context.Context) error
}

// Approver decides whether a discovered link may join the frontier.
// The interactive crawl mode prompts the operator here; everything
// else uses AutoApprover.
type Approver interface {
	Approve(entry model.FrontierEntry) bool
}

// AutoApprover approves every discovered link.
type AutoApprover struct{}

// Approve always returns true.
func (AutoApprover) Approve(model.FrontierEntry) bool { return true }

// Controller drives one crawl from seed to completion. It is not safe
// to call Run concurrently; State may be read from other goroutines.
type Controller struct {
	pipeline *fetch.Pipeline
	policy   *robots.Cache
	store    Store

	extractor *extract.Extractor
	converter *imaging.Converter
	approver  Approver
	logger    *slog.Logger

	depthLimit      int
	includeExternal bool
	textOnly        bool
	imageTypes      []string
	mode            fetch.Mode

	mu       sync.Mutex
	state    State
	frontier *frontier.Frontier
	results  []*model.PageResult

	seedURL    string
	seedOrigin string

	// checkpointFailures counts consecutive Save failures.
	checkpointFailures int
}

// Option configures a Controller.
type Option func(*Controller)

// WithDepthLimit sets the maximum crawl depth. Default 3.
func WithDepthLimit(depth int) Option {
	return func(c *Controller) {
		if depth >= 0 {
			c.depthLimit = depth
		}
	}
}

// WithIncludeExternal makes the crawl fetch links outside the seed's
// origin. External pages are leaves: their links are never followed.
func WithIncludeExternal(include bool) Option {
	return func(c *Controller) {
		c.includeExternal = include
	}
}

// WithTextOnly disables image extraction and download.
func WithTextOnly(textOnly bool) Option {
	return func(c *Controller) {
		c.textOnly = textOnly
	}
}

// WithImageTypes restricts image downloads to the given extensions
// (e.g. "png", "jpg"). Empty means every supported type.
func WithImageTypes(types []string) Option {
	return func(c *Controller) {
		c.imageTypes = types
	}
}

// WithMode selects static or dynamic page fetching.
func WithMode(mode fetch.Mode) Option {
	return func(c *Controller) {
		c.mode = mode
	}
}

// WithApprover sets the link approver. Default approves everything.
func WithApprover(a Approver) Option {
	return func(c *Controller) {
		c.approver = a
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a Controller.
func New(pipeline *fetch.Pipeline, policy *robots.Cache, store Store, opts ...Option) *Controller {
	c := &Controller{
		pipeline:   pipeline,
		policy:     policy,
		store:      store,
		depthLimit: 3,
		approver:   AutoApprover{},
		state:      StateInit,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.extractor == nil {
		c.extractor = extract.New(extract.WithTextOnly(c.textOnly))
	}
	if c.converter == nil {
		c.converter = imaging.NewConverter()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// State returns the controller's current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Result is the outcome of a crawl run.
type Result struct {
	// State is the terminal state: StateDone, StatePaused, or
	// StateFailed.
	State State

	// SeedURL is the normalized seed.
	SeedURL string

	// Pages holds every processed page in crawl order, including
	// pages restored from a resumed snapshot.
	Pages []*model.PageResult
}

// Run crawls breadth-first from seedURL until the frontier is empty or
// ctx is canceled. Cancellation is a pause, not an error: progress is
// checkpointed and Run returns a StatePaused result.
func (c *Controller) Run(ctx context.Context, seedURL string) (*Result, error) {
	seed, err := scope.Normalize(seedURL, "")
	if err != nil {
		c.setState(StateFailed)
		return nil, fmt.Errorf("invalid seed URL %q: %w", seedURL, err)
	}
	origin, err := scope.Origin(seed)
	if err != nil {
		c.setState(StateFailed)
		return nil, fmt.Errorf("invalid seed URL %q: %w", seedURL, err)
	}
	c.seedURL = seed
	c.seedOrigin = origin

	if err := c.initFrontier(ctx); err != nil {
		c.setState(StateFailed)
		return nil, err
	}

	c.setState(StateRunning)
	c.logger.Info("crawl started",
		"seed", c.seedURL,
		"depth_limit", c.depthLimit,
		"resumed_pages", len(c.results),
	)

	for c.frontier.Len() > 0 {
		if ctx.Err() != nil {
			return c.pause(ctx)
		}

		wave := c.frontier.PopN(c.pipeline.Concurrency())
		tasks := c.filterAllowed(ctx, wave)
		outcomes := c.pipeline.Run(ctx, tasks)

		interrupted, err := c.processWave(ctx, outcomes)
		if err != nil {
			c.setState(StateFailed)
			return nil, err
		}
		if len(interrupted) > 0 {
			c.frontier.Requeue(interrupted)
			return c.pause(ctx)
		}
	}

	c.setState(StateDone)
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear finished crawl state",
			weblog.KindKey, weblog.KindStateStore,
			"error", err,
		)
	}
	c.logger.Info("crawl finished", "pages", len(c.results))

	return c.result(StateDone), nil
}

// initFrontier seeds a fresh crawl or restores a saved one. A snapshot
// is resumed only when its parameters match the current run; anything
// else starts over.
func (c *Controller) initFrontier(ctx context.Context) error {
	c.frontier = frontier.New(c.depthLimit)
	c.results = make([]*model.PageResult, 0)

	saved, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, state.ErrNotFound):
		// Fresh crawl.
	case err != nil:
		return fmt.Errorf("failed to load saved crawl state: %w", err)
	case saved.SeedURL == c.seedURL &&
		saved.DepthLimit == c.depthLimit &&
		saved.IncludeExternal == c.includeExternal:
		c.frontier.Restore(saved.Frontier, saved.Visited)
		c.results = saved.Results
		c.logger.Info("resuming saved crawl",
			"pending", len(saved.Frontier),
			"completed", len(saved.Results),
		)
		return nil
	default:
		c.logger.Warn("saved crawl state does not match this run, starting over",
			"saved_seed", saved.SeedURL,
		)
	}

	c.frontier.Seed(model.FrontierEntry{
		URL:    c.seedURL,
		Depth:  0,
		Origin: c.seedOrigin,
	})
	return nil
}

// filterAllowed drops wave entries that robots.txt forbids and builds
// fetch tasks for the rest. Denied entries produce no page result;
// they were already marked visited when enqueued, so they are not
// retried.
func (c *Controller) filterAllowed(ctx context.Context, wave []model.FrontierEntry) []fetch.Task {
	tasks := make([]fetch.Task, 0, len(wave))
	for _, entry := range wave {
		if !c.policy.Allowed(ctx, entry.URL) {
			c.logger.Warn("page disallowed by robots.txt",
				weblog.KindKey, weblog.KindRobotsDenied,
				"url", entry.URL,
				"depth", entry.Depth,
			)
			continue
		}
		tasks = append(tasks, fetch.Task{Entry: entry, Mode: c.mode})
	}
	return tasks
}

// processWave turns fetch outcomes into page results in task order,
// expanding discovered links into the frontier and checkpointing after
// each page. It returns the entries whose fetch was interrupted by
// cancellation so the caller can requeue them.
func (c *Controller) processWave(ctx context.Context, outcomes []fetch.Outcome) ([]model.FrontierEntry, error) {
	var interrupted []model.FrontierEntry

	for i, outcome := range outcomes {
		if outcome.Err != nil && errors.Is(outcome.Err, context.Canceled) {
			interrupted = append(interrupted, outcome.Entry)
			continue
		}

		page := c.buildPage(ctx, outcome)

		c.mu.Lock()
		c.results = append(c.results, page)
		c.mu.Unlock()

		// Entries popped with this wave but not yet processed are
		// already marked visited, so a snapshot that omits them would
		// never revisit them after a crash. Carry them at the head of
		// the checkpoint's frontier, in pop order.
		pending := make([]model.FrontierEntry, 0, len(interrupted)+len(outcomes)-i-1)
		pending = append(pending, interrupted...)
		for _, rest := range outcomes[i+1:] {
			pending = append(pending, rest.Entry)
		}

		if err := c.checkpoint(ctx, pending); err != nil {
			return nil, err
		}
	}

	return interrupted, nil
}

// buildPage converts one fetch outcome into a page result, running
// extraction, link expansion, and image conversion for successful
// fetches.
func (c *Controller) buildPage(ctx context.Context, outcome fetch.Outcome) *model.PageResult {
	entry := outcome.Entry
	page := &model.PageResult{
		URL:      entry.URL,
		Depth:    entry.Depth,
		External: entry.External,
	}

	if outcome.Response != nil {
		page.StatusCode = outcome.Response.StatusCode
	}
	if outcome.Err != nil {
		page.FetchErr = outcome.Err.Error()
		c.logger.Warn("page fetch failed",
			weblog.KindKey, weblog.KindFetch,
			"url", entry.URL,
			"depth", entry.Depth,
			"error", outcome.Err,
		)
		return page
	}

	if !isHTML(outcome.Response.ContentType) {
		c.logger.Debug("skipping extraction for non-HTML page",
			"url", entry.URL,
			"content_type", outcome.Response.ContentType,
		)
		return page
	}

	content, err := c.extractor.Extract(entry.URL, outcome.Response.Body)
	if err != nil {
		c.logger.Warn("content extraction failed",
			weblog.KindKey, weblog.KindExtraction,
			"url", entry.URL,
			"error", err,
		)
		return page
	}

	page.Title = content.Title
	page.Text = content.Text
	page.Links = content.Links
	page.ImageURL = content.ImageURL

	// External pages are leaves; their links are recorded but never
	// expanded.
	if !entry.External {
		c.expandLinks(entry, content.Links)
	}

	if !c.textOnly && content.ImageURL != "" {
		page.Image = c.downloadImage(ctx, content.ImageURL)
	}

	return page
}

// expandLinks normalizes, classifies, and enqueues the links found on
// a page.
func (c *Controller) expandLinks(from model.FrontierEntry, links []string) {
	for _, link := range links {
		normalized, err := scope.Normalize(link, from.URL)
		if err != nil {
			c.logger.Warn("discovered link is not crawlable",
				weblog.KindKey, weblog.KindInvalidURL,
				"link", link,
				"page", from.URL,
			)
			continue
		}

		cls := scope.Classify(normalized, c.seedOrigin, c.includeExternal)
		if cls == scope.OutOfScope {
			continue
		}

		origin, err := scope.Origin(normalized)
		if err != nil {
			continue
		}

		entry := model.FrontierEntry{
			URL:      normalized,
			Depth:    from.Depth + 1,
			Origin:   origin,
			External: cls == scope.External,
		}

		if !c.approver.Approve(entry) {
			c.logger.Debug("link rejected by approver", "url", normalized)
			continue
		}

		if c.frontier.Push(entry) {
			c.logger.Debug("link enqueued",
				"url", normalized,
				"depth", entry.Depth,
				"external", entry.External,
			)
		}
	}
}

// downloadImage fetches and converts a page's representative image.
// Image failures never fail the page; the result just has no image.
func (c *Controller) downloadImage(ctx context.Context, imageURL string) []byte {
	if !c.imageTypeAllowed(imageURL) {
		c.logger.Debug("image type filtered out", "url", imageURL)
		return nil
	}

	resp, err := c.pipeline.Fetcher().Fetch(ctx, imageURL, fetch.ModeStatic)
	if err != nil {
		c.logger.Warn("image download failed",
			weblog.KindKey, weblog.KindImage,
			"url", imageURL,
			"error", err,
		)
		return nil
	}

	converted, err := c.converter.Convert(resp.Body, resp.ContentType, imageURL)
	if err != nil {
		c.logger.Warn("image conversion failed",
			weblog.KindKey, weblog.KindImage,
			"url", imageURL,
			"error", err,
		)
		return nil
	}

	return converted
}

// imageTypeAllowed applies the configured image type filter to an
// image URL's extension.
func (c *Controller) imageTypeAllowed(imageURL string) bool {
	if len(c.imageTypes) == 0 {
		return true
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(strippedPath(imageURL))), ".")
	if ext == "" {
		// Extensionless URLs can't be filtered by type; let the
		// converter decide from the bytes.
		return true
	}

	for _, allowed := range c.imageTypes {
		t := strings.TrimPrefix(strings.ToLower(allowed), ".")
		if ext == t || (ext == "jpeg" && t == "jpg") || (ext == "jpg" && t == "jpeg") {
			return true
		}
	}
	return false
}

// strippedPath returns the URL's path without query or fragment.
func strippedPath(rawURL string) string {
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return s
}

// checkpoint persists the current crawl snapshot, with pending holding
// the wave entries popped but not yet processed. Transient failures are
// tolerated up to maxCheckpointFailures in a row. The save ignores
// cancellation: a page that was processed must not be lost to the very
// signal that pauses the crawl.
func (c *Controller) checkpoint(ctx context.Context, pending []model.FrontierEntry) error {
	if err := c.store.Save(context.WithoutCancel(ctx), c.snapshot(pending)); err != nil {
		c.checkpointFailures++
		c.logger.Warn("failed to checkpoint crawl state",
			weblog.KindKey, weblog.KindStateStore,
			"consecutive_failures", c.checkpointFailures,
			"error", err,
		)
		if c.checkpointFailures >= maxCheckpointFailures {
			return fmt.Errorf("%w: %d consecutive failures: %v",
				ErrCheckpoint, c.checkpointFailures, err)
		}
		return nil
	}

	c.checkpointFailures = 0
	return nil
}

// snapshot builds the persistable state from the live crawl. Pending
// entries are prepended to the saved frontier so every snapshot is
// self-consistent: each visited URL is either a recorded result or
// still queued for fetching.
func (c *Controller) snapshot(pending []model.FrontierEntry) *model.CrawlState {
	queue, visited := c.frontier.Snapshot()
	if len(pending) > 0 {
		merged := make([]model.FrontierEntry, 0, len(pending)+len(queue))
		merged = append(merged, pending...)
		queue = append(merged, queue...)
	}

	c.mu.Lock()
	results := make([]*model.PageResult, len(c.results))
	copy(results, c.results)
	c.mu.Unlock()

	st := model.NewCrawlState(c.seedURL, c.depthLimit, c.includeExternal)
	st.Frontier = queue
	st.Visited = visited
	st.Results = results
	return st
}

// pause checkpoints progress and ends the run in StatePaused. The
// checkpoint uses a fresh context since the run's is already canceled.
func (c *Controller) pause(ctx context.Context) (*Result, error) {
	saveCtx := context.WithoutCancel(ctx)
	if err := c.store.Save(saveCtx, c.snapshot(nil)); err != nil {
		c.logger.Error("failed to save state on pause",
			weblog.KindKey, weblog.KindStateStore,
			"error", err,
		)
		c.setState(StateFailed)
		return nil, fmt.Errorf("%w: pause checkpoint: %v", ErrCheckpoint, err)
	}

	c.setState(StatePaused)
	c.logger.Info("crawl paused",
		"pages", len(c.results),
		"pending", c.frontier.Len(),
	)

	return c.result(StatePaused), nil
}

// result builds the run outcome.
func (c *Controller) result(s State) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Result{
		State:   s,
		SeedURL: c.seedURL,
		Pages:   c.results,
	}
}

// isHTML reports whether a content type is parseable page markup.
func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "xhtml")
}
