package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These follow the behavior of typical
// polite crawlers: shallow depth, modest concurrency, and a pause
// between requests to the same site.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "webdoc"

	// DefaultMaxDepth bounds the crawl at three link hops from the
	// seed. Depth 0 is the seed page itself.
	DefaultMaxDepth = 3

	// DefaultConcurrency is the number of fetches in flight at once.
	// This caps outbound connections and the memory held by in-flight
	// response bodies.
	DefaultConcurrency = 5

	// DefaultTimeout is the per-fetch timeout. It applies to each page
	// request individually, never to the crawl as a whole.
	DefaultTimeout = 30 * time.Second

	// DefaultRobotsTimeout is the robots.txt fetch timeout. Kept short
	// so an unresponsive origin cannot stall the crawl.
	DefaultRobotsTimeout = 5 * time.Second

	// DefaultDelay is the politeness pause between requests.
	DefaultDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies webdoc in HTTP requests. A
	// descriptive User-Agent lets site operators recognize the crawler.
	DefaultUserAgent = "webdoc/1.0 (+https://github.com/redoracle/webdoc)"

	// DefaultMaxBodySize caps how much of a response body is read.
	// 5MB covers real HTML pages while bounding memory.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultOutput is the assembled document path.
	DefaultOutput = "webdoc.md"

	// DefaultRenderTimeout is the per-page timeout for dynamic
	// rendering. Headless page loads are much slower than plain GETs.
	DefaultRenderTimeout = 60 * time.Second
)

// Output formats accepted by --format.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Config holds all options for a crawl run. It is populated from CLI
// flags, the optional config file, and environment overrides, then
// passed through the application by dependency injection; there is no
// global configuration state, so independent crawls can run in one
// process with separate Configs.
type Config struct {
	// StartURL is the seed URL. Required.
	StartURL string

	// MaxDepth is the maximum crawl depth. Depth 0 fetches only the
	// seed page.
	MaxDepth int

	// IncludeExternal follows links whose origin differs from the
	// seed's. External pages are crawled as leaves: their own links
	// are never expanded.
	IncludeExternal bool

	// TextOnly skips image discovery and conversion entirely.
	TextOnly bool

	// ImageTypes restricts which image extensions are fetched
	// (e.g. "jpg", "png"). Empty means all supported types.
	ImageTypes []string

	// Interactive asks for confirmation before each discovered link
	// is enqueued.
	Interactive bool

	// DynamicRender fetches pages through a headless browser so
	// script-generated content is captured.
	DynamicRender bool

	// UserAgent is the User-Agent header for all requests.
	UserAgent string

	// Output is the destination path of the assembled document.
	Output string

	// Format selects the document format: FormatMarkdown or FormatJSON.
	Format string

	// Concurrency is the fetch pipeline's concurrency bound.
	Concurrency int

	// Timeout is the per-fetch timeout.
	Timeout time.Duration

	// Delay is the politeness pause between requests.
	Delay time.Duration

	// MaxBodySize caps response body reads, in bytes.
	MaxBodySize int64

	// StateDir is the directory holding the crawl state database.
	// Defaults to the XDG data directory.
	StateDir string

	// ConfigFilePath is an explicit config file path. When empty the
	// loader searches .webdoc.yaml in the working directory and home.
	ConfigFilePath string

	// Verbose enables debug-level logging.
	Verbose bool
}

// NewConfig returns a Config with all defaults applied. Many defaults
// are non-zero, so relying on zero values would be wrong; this
// constructor also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxDepth:    DefaultMaxDepth,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		Delay:       DefaultDelay,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Output:      DefaultOutput,
		Format:      FormatMarkdown,
		StateDir:    XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for webdoc, which holds
// the crawl state database between paused runs.
// On Linux: ~/.local/share/webdoc
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webdoc.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem
// found as a sentinel error. Called once after flag and file parsing,
// before the crawl starts, so bad input fails fast with a clear
// message.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StartURL) == "" {
		return ErrNoStartURL
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Format != FormatMarkdown && c.Format != FormatJSON {
		return ErrInvalidFormat
	}
	return nil
}

// NormalizedImageTypes returns the configured image extensions
// lower-cased and without leading dots, for comparison against URL
// extensions.
func (c *Config) NormalizedImageTypes() []string {
	if len(c.ImageTypes) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.ImageTypes))
	for _, t := range c.ImageTypes {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
