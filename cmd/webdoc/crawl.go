package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/redoracle/webdoc/internal/config"
	"github.com/redoracle/webdoc/internal/crawler"
	"github.com/redoracle/webdoc/internal/document"
	"github.com/redoracle/webdoc/internal/fetch"
	weblog "github.com/redoracle/webdoc/internal/log"
	"github.com/redoracle/webdoc/internal/model"
	"github.com/redoracle/webdoc/internal/robots"
	"github.com/redoracle/webdoc/internal/state"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <start-url>",
		Short: "Crawl a website and assemble it into a document",
		Long: `Crawl fetches pages breadth-first from the start URL and assembles
them into a single document.

The crawl stays within the start URL's origin unless --include-external
is set, honors robots.txt, and paces its requests. Interrupting with
Ctrl-C checkpoints progress; running the same crawl again resumes it.

Examples:
  # Crawl two levels deep into a Markdown document
  webdoc crawl -d 2 https://example.com

  # JSON output with images limited to PNG
  webdoc crawl -f json --image-types png -o site.json https://example.com

  # Capture script-generated content with a headless browser
  webdoc crawl --render https://example.com

  # Approve each discovered link by hand
  webdoc crawl -i https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum crawl depth (0 = start page only)")
	cmd.Flags().Bool("include-external", false,
		"Follow links to other sites (captured as leaves)")
	cmd.Flags().Bool("text-only", false,
		"Skip image discovery and conversion")
	cmd.Flags().StringSlice("image-types", nil,
		"Image extensions to download (e.g. png,jpg); empty = all supported")
	cmd.Flags().BoolP("interactive", "i", false,
		"Ask before each discovered link is crawled")
	cmd.Flags().Bool("render", false,
		"Render pages in a headless browser (requires Chrome)")

	// Networking flags
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header for all requests")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of fetches in flight at once")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Politeness pause between requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum bytes read from any single response")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		"Output document path")
	cmd.Flags().StringP("format", "f", config.FormatMarkdown,
		"Output format: markdown or json")

	// Configuration
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webdoc.yaml in current or home directory)")
	cmd.Flags().String("state-dir", "",
		"Directory for the resumable crawl state database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, tally := weblog.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Interrupts pause the crawl instead of killing it; state is
	// checkpointed so the next run resumes.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "interrupt received, pausing crawl...")
		cancel()
	}()

	return runCrawl(ctx, cmd, cfg, logger, tally)
}

// buildConfig assembles the effective configuration. Precedence, lowest
// to highest: defaults, config file, environment, flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.StartURL = args[0]

	explicitConfig, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = explicitConfig

	if path := config.FindConfigFile(explicitConfig); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	} else if explicitConfig != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitConfig)
	}

	// A .env file feeds the WEBDOC_* overrides; missing is fine.
	_ = godotenv.Load() //nolint:errcheck
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyFlags overlays explicitly set flags onto cfg. Unchanged flags
// keep whatever the file and environment decided.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("depth") {
		if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
			return err
		}
	}
	if flags.Changed("include-external") {
		if cfg.IncludeExternal, err = flags.GetBool("include-external"); err != nil {
			return err
		}
	}
	if flags.Changed("text-only") {
		if cfg.TextOnly, err = flags.GetBool("text-only"); err != nil {
			return err
		}
	}
	if flags.Changed("image-types") {
		if cfg.ImageTypes, err = flags.GetStringSlice("image-types"); err != nil {
			return err
		}
	}
	if flags.Changed("interactive") {
		if cfg.Interactive, err = flags.GetBool("interactive"); err != nil {
			return err
		}
	}
	if flags.Changed("render") {
		if cfg.DynamicRender, err = flags.GetBool("render"); err != nil {
			return err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("delay") {
		if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
			return err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return err
		}
	}
	if flags.Changed("output") {
		if cfg.Output, err = flags.GetString("output"); err != nil {
			return err
		}
	}
	if flags.Changed("format") {
		if cfg.Format, err = flags.GetString("format"); err != nil {
			return err
		}
	}
	if flags.Changed("state-dir") {
		if cfg.StateDir, err = flags.GetString("state-dir"); err != nil {
			return err
		}
	}

	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runCrawl wires the components together and executes the crawl.
func runCrawl(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, tally *weblog.TallyHandler) error {
	fetchOpts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithDelay(cfg.Delay),
		fetch.WithLogger(logger),
	}
	if cfg.DynamicRender {
		fetchOpts = append(fetchOpts, fetch.WithRenderer(fetch.NewChromedpRenderer(
			fetch.WithRenderTimeout(config.DefaultRenderTimeout),
			fetch.WithRenderUserAgent(cfg.UserAgent),
			fetch.WithRenderLogger(logger),
		)))
	}

	fetcher := fetch.New(&http.Client{Timeout: cfg.Timeout}, fetchOpts...)
	pipeline := fetch.NewPipeline(fetcher,
		fetch.WithConcurrency(cfg.Concurrency),
		fetch.WithPipelineLogger(logger),
	)

	policy := robots.NewCache(cfg.UserAgent,
		robots.WithTimeout(config.DefaultRobotsTimeout),
		robots.WithLogger(logger),
	)

	store, err := state.Open(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer store.Close()

	ctrlOpts := []crawler.Option{
		crawler.WithDepthLimit(cfg.MaxDepth),
		crawler.WithIncludeExternal(cfg.IncludeExternal),
		crawler.WithTextOnly(cfg.TextOnly),
		crawler.WithImageTypes(cfg.NormalizedImageTypes()),
		crawler.WithLogger(logger),
	}
	if cfg.DynamicRender {
		ctrlOpts = append(ctrlOpts, crawler.WithMode(fetch.ModeDynamic))
	}
	if cfg.Interactive {
		ctrlOpts = append(ctrlOpts, crawler.WithApprover(&promptApprover{
			in:  cmd.InOrStdin(),
			out: os.Stderr,
		}))
	}

	ctrl := crawler.New(pipeline, policy, store, ctrlOpts...)

	start := time.Now()
	res, err := ctrl.Run(ctx, cfg.StartURL)
	if err != nil {
		return err
	}

	switch res.State {
	case crawler.StatePaused:
		fmt.Fprintf(os.Stderr, "Crawl paused after %d page(s). Run the same command to resume.\n",
			len(res.Pages))
	case crawler.StateDone:
		if err := writeDocument(cfg, res); err != nil {
			logger.Error("document assembly failed",
				weblog.KindKey, weblog.KindAssembly,
				"output", cfg.Output,
				"error", err,
			)
			return fmt.Errorf("failed to assemble document: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Crawled %d page(s) in %s -> %s\n",
			len(res.Pages), time.Since(start).Round(time.Millisecond), cfg.Output)
	}

	printSummary(os.Stderr, tally.Counts())
	return nil
}

// writeDocument assembles and writes the output document. Assembly
// errors are fatal: a truncated document is worse than none.
func writeDocument(cfg *config.Config, res *crawler.Result) error {
	doc := document.New(res.SeedURL, res.Pages)

	dir := filepath.Dir(cfg.Output)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	var w document.Writer
	switch cfg.Format {
	case config.FormatJSON:
		w = document.NewJSONWriter(f, document.WithPrettyPrint())
	default:
		opts := []document.MarkdownOption{}
		if !cfg.TextOnly {
			imageDir := filepath.Join(filepath.Dir(cfg.Output), "images")
			opts = append(opts, document.WithImageDir(imageDir))
		}
		w = document.NewMarkdownWriter(f, opts...)
	}

	if _, err := w.Write(doc); err != nil {
		return err
	}
	return f.Sync()
}

// printSummary reports tallied warnings and errors at the end of a run.
func printSummary(w io.Writer, counts weblog.Counts) {
	if counts.Warnings == 0 && counts.Errors == 0 {
		return
	}

	fmt.Fprintf(w, "\n%d warning(s), %d error(s):\n", counts.Warnings, counts.Errors)
	for kind, n := range counts.ByKind {
		fmt.Fprintf(w, "  %-24s %d\n", kind, n)
	}
}

// promptApprover asks the operator before each discovered link joins
// the frontier. Default answer is yes.
type promptApprover struct {
	in  io.Reader
	out io.Writer

	scanner *bufio.Scanner
}

// Approve prompts for one link. EOF or a read error approves, so a
// closed stdin degrades to a normal crawl rather than a stalled one.
func (a *promptApprover) Approve(entry model.FrontierEntry) bool {
	if a.scanner == nil {
		a.scanner = bufio.NewScanner(a.in)
	}

	fmt.Fprintf(a.out, "crawl %s (depth %d)? [Y/n] ", entry.URL, entry.Depth)
	if !a.scanner.Scan() {
		return true
	}

	answer := strings.ToLower(strings.TrimSpace(a.scanner.Text()))
	return answer != "n" && answer != "no"
}
