// Package robots fetches, parses, and caches robots.txt policies per
// origin.
//
// Policies are fetched lazily on the first query for an origin and
// cached for the lifetime of the run; there is no mid-run TTL refresh.
// A fetch failure or malformed file fails open (allow-all): a site
// without a robots.txt must not halt the crawl. Concurrent queries for
// the same uncached origin share a single fetch via
// golang.org/x/sync/singleflight.
package robots

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// maxRobotsSize caps the robots.txt body read. Real-world files are a
// few kilobytes; anything larger is truncated.
const maxRobotsSize = 512 * 1024

// Cache answers allow/deny per URL using cached per-origin policies.
// All methods are safe for concurrent use.
type Cache struct {
	// client performs the robots.txt fetches. Its timeout should be
	// short: a slow robots.txt must not stall the crawl.
	client *http.Client

	// userAgent selects the rule group. The robotstxt library picks
	// the most specific matching group and falls back to "*".
	userAgent string

	logger *slog.Logger

	// flight deduplicates concurrent fetches for the same origin.
	flight singleflight.Group

	mu sync.RWMutex
	// policies maps origin to parsed robots data. A nil value means
	// allow-all (failed or absent robots.txt).
	policies map[string]*robotstxt.RobotsData
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithTimeout overrides the robots.txt fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.client.Timeout = d
	}
}

// NewCache creates a robots policy cache identifying itself as userAgent.
func NewCache(userAgent string, opts ...Option) *Cache {
	c := &Cache{
		client:    &http.Client{Timeout: 5 * time.Second},
		userAgent: userAgent,
		policies:  make(map[string]*robotstxt.RobotsData),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Allowed reports whether the crawler may fetch rawURL.
//
// Unparseable URLs are allowed: scope filtering has already validated
// everything that reaches the fetch path, and robots must never be the
// component that drops a page for a syntax reason.
func (c *Cache) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	origin := u.Scheme + "://" + u.Host

	data := c.policy(ctx, origin)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return data.FindGroup(c.userAgent).Test(path)
}

// policy returns the cached policy for origin, fetching it once if
// needed. Nil means allow-all.
func (c *Cache) policy(ctx context.Context, origin string) *robotstxt.RobotsData {
	c.mu.RLock()
	data, ok := c.policies[origin]
	c.mu.RUnlock()
	if ok {
		return data
	}

	v, _, _ := c.flight.Do(origin, func() (any, error) {
		// Re-check under the flight: a previous flight may have
		// populated the cache between the RLock and Do.
		c.mu.RLock()
		cached, ok := c.policies[origin]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		fetched := c.fetch(ctx, origin)

		c.mu.Lock()
		c.policies[origin] = fetched
		c.mu.Unlock()

		return fetched, nil
	})

	data, _ = v.(*robotstxt.RobotsData)
	return data
}

// fetch retrieves and parses origin's robots.txt. Any failure returns
// nil, which the cache treats as allow-all.
func (c *Cache) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("robots.txt fetch failed, allowing all",
			"origin", origin,
			"error", err,
		)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("robots.txt unavailable, allowing all",
			"origin", origin,
			"status", resp.StatusCode,
		)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Debug("robots.txt malformed, allowing all",
			"origin", origin,
			"error", err,
		)
		return nil
	}

	c.logger.Debug("robots.txt policy cached", "origin", origin)
	return data
}
