package fetch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/redoracle/webdoc/internal/model"
)

// Task is one unit of pipeline work.
type Task struct {
	// Entry is the frontier entry being fetched.
	Entry model.FrontierEntry

	// Mode selects static or dynamic retrieval.
	Mode Mode
}

// Outcome pairs a task with its result. Exactly one of Response and
// Err is meaningful; a failed fetch carries its entry through so the
// controller can record the error against the right page.
type Outcome struct {
	Entry    model.FrontierEntry
	Response *Response
	Err      error
}

// Pipeline runs waves of fetches with a bounded concurrency limit.
//
// Outcomes are returned in task order, not completion order: the
// controller processes pages in frontier order so the assembled
// document is deterministic, buffering is the pipeline's job.
type Pipeline struct {
	fetcher     *Fetcher
	concurrency int
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithConcurrency bounds the number of fetches in flight. Default 5.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithPipelineLogger sets a custom logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a Pipeline around the given Fetcher.
func NewPipeline(fetcher *Fetcher, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetcher:     fetcher,
		concurrency: 5,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Concurrency returns the pipeline's concurrency bound.
func (p *Pipeline) Concurrency() int {
	return p.concurrency
}

// Fetcher returns the underlying fetcher, for one-off fetches (image
// downloads) that should share the pipeline's pacing and headers.
func (p *Pipeline) Fetcher() *Fetcher {
	return p.fetcher
}

// Run fetches all tasks with at most the configured number in flight
// and returns one outcome per task, in task order.
//
// Individual fetch failures land in their Outcome and never cancel
// sibling fetches. Context cancellation aborts remaining work; already
// finished outcomes are still returned, and unstarted tasks carry the
// context error so the caller can tell processed from interrupted.
func (p *Pipeline) Run(ctx context.Context, tasks []Task) []Outcome {
	outcomes := make([]Outcome, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)

	for i, task := range tasks {
		outcomes[i].Entry = task.Entry

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}

			resp, err := p.fetcher.Fetch(ctx, task.Entry.URL, task.Mode)
			outcomes[i].Response = resp
			outcomes[i].Err = err

			if err != nil {
				p.logger.Debug("fetch failed",
					"url", task.Entry.URL,
					"depth", task.Entry.Depth,
					"mode", task.Mode.String(),
					"error", err,
				)
			}
			return nil
		})
	}

	// Workers never return errors; failures are recorded per outcome.
	_ = g.Wait() //nolint:errcheck

	return outcomes
}
