package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrRender marks dynamic rendering failures. The controller treats
// them exactly like fetch errors: the page is skipped and the crawl
// continues.
var ErrRender = errors.New("dynamic render failed")

// Renderer retrieves a page after executing its scripts, returning the
// final DOM as HTML. The crawl core depends only on this contract, not
// on any particular browser automation mechanism.
type Renderer interface {
	Render(ctx context.Context, url string) (*Response, error)
}

// ChromedpRenderer renders pages in headless Chrome via chromedp.
type ChromedpRenderer struct {
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// RenderOption configures a ChromedpRenderer.
type RenderOption func(*ChromedpRenderer)

// WithRenderTimeout sets the per-page render timeout.
func WithRenderTimeout(d time.Duration) RenderOption {
	return func(r *ChromedpRenderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRenderUserAgent sets the browser's User-Agent.
func WithRenderUserAgent(ua string) RenderOption {
	return func(r *ChromedpRenderer) {
		r.userAgent = ua
	}
}

// WithRenderLogger sets a custom logger.
func WithRenderLogger(logger *slog.Logger) RenderOption {
	return func(r *ChromedpRenderer) {
		r.logger = logger
	}
}

// NewChromedpRenderer creates a renderer. Each Render call runs its
// own browser context; concurrency is bounded by the fetch pipeline,
// so the renderer needs no pool of its own.
func NewChromedpRenderer(opts ...RenderOption) *ChromedpRenderer {
	r := &ChromedpRenderer{
		timeout:   60 * time.Second,
		userAgent: "webdoc/1.0",
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Render navigates to url, waits for the document body, and returns
// the fully rendered DOM.
func (r *ChromedpRenderer) Render(ctx context.Context, url string) (*Response, error) {
	start := time.Now()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(r.userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	renderCtx, cancelTimeout := context.WithTimeout(browserCtx, r.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRender, url, err)
	}

	r.logger.Debug("rendered page",
		"url", url,
		"bytes", len(html),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return &Response{
		URL:         url,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
	}, nil
}
