package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Mode selects how a page is retrieved.
type Mode int

const (
	// ModeStatic issues a plain HTTP GET.
	ModeStatic Mode = iota

	// ModeDynamic renders the page in a headless browser first.
	ModeDynamic
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeDynamic {
		return "dynamic"
	}
	return "static"
}

// Fetch failure sentinels.
var (
	// ErrBadStatus marks non-2xx responses.
	ErrBadStatus = errors.New("unexpected HTTP status")

	// ErrNoRenderer is returned when ModeDynamic is requested but no
	// renderer was configured.
	ErrNoRenderer = errors.New("dynamic rendering requested but no renderer configured")
)

// Response is a successfully retrieved page. The body has already been
// decompressed and, for HTML, transcoded to UTF-8.
type Response struct {
	// URL is the URL that was requested.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the response body, capped at the configured size.
	Body []byte
}

// Fetcher retrieves individual pages. It is safe for concurrent use.
type Fetcher struct {
	// client performs static fetches.
	client *http.Client

	// renderer handles dynamic fetches. Nil unless rendering is enabled.
	renderer Renderer

	// limiter paces requests for politeness. A zero-delay
	// configuration leaves it nil, which disables pacing.
	limiter *rate.Limiter

	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header for all requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize caps how many bytes of a response body are read.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithRenderer enables dynamic fetching through the given renderer.
func WithRenderer(r Renderer) Option {
	return func(f *Fetcher) {
		f.renderer = r
	}
}

// WithDelay paces requests so that on average one request is issued
// per delay interval across all workers.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher using the given HTTP client. The client is
// required so tests and callers control timeouts and transports; pass
// &http.Client{Timeout: ...} for typical use.
func New(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		userAgent:   "webdoc/1.0",
		maxBodySize: 5 * 1024 * 1024,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{Timeout: 30 * time.Second}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// Fetch retrieves url in the given mode. Network errors, timeouts, and
// non-2xx statuses are returned as errors; the caller records them on
// the page result and continues the crawl.
func (f *Fetcher) Fetch(ctx context.Context, url string, mode Mode) (*Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if mode == ModeDynamic {
		if f.renderer == nil {
			return nil, ErrNoRenderer
		}
		return f.renderer.Render(ctx, url)
	}

	return f.fetchStatic(ctx, url)
}

// fetchStatic performs a plain GET with decompression and charset
// normalization.
func (f *Fetcher) fetchStatic(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/*;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	// Setting Accept-Encoding explicitly disables the transport's
	// transparent gzip, so both encodings are decoded below.
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Response{URL: url, StatusCode: resp.StatusCode},
			fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		reader = brotli.NewReader(reader)
	case "gzip":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip response: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	reader = io.LimitReader(reader, f.maxBodySize)

	contentType := resp.Header.Get("Content-Type")
	if isTextual(contentType) {
		// Transcode legacy encodings to UTF-8 so extraction sees
		// clean text. charset.NewReader sniffs <meta> declarations
		// when the header is silent.
		decoded, err := charset.NewReader(reader, contentType)
		if err == nil {
			reader = decoded
		}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched page",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	return &Response{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// isTextual reports whether the content type warrants charset decoding.
func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "xhtml") ||
		strings.Contains(ct, "xml")
}
