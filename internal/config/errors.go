package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Package-level sentinels let callers use errors.Is while keeping
// human-readable messages.
var (
	// ErrNoStartURL is returned when no seed URL is provided.
	ErrNoStartURL = errors.New("no start URL specified")

	// ErrInvalidDepth is returned when the depth limit is negative.
	// Use 0 to crawl only the seed page.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the fetch concurrency is
	// not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the per-fetch timeout is not
	// positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the politeness delay is
	// negative. Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the body size cap is
	// negative. Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidFormat is returned for output formats other than
	// markdown and json.
	ErrInvalidFormat = errors.New(`invalid format: must be "markdown" or "json"`)
)
