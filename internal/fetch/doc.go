// Package fetch retrieves pages for the crawl.
//
// The Fetcher performs single page fetches in one of two modes: static
// (a plain HTTP GET) or dynamic (delegated to an injected Renderer
// that executes page scripts in a headless browser and returns the
// final DOM). The Pipeline runs a wave of fetches with a bounded
// concurrency limit and returns outcomes in task order, so the
// controller can process results deterministically regardless of
// completion order.
//
// Failures are values here: a network error, timeout, or non-2xx
// status produces an Outcome with Err set. A single page failure never
// aborts a crawl. The Fetcher is configured through options so bounded
// retry with backoff can be added later without changing callers.
package fetch
