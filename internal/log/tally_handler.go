package log

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// KindKey is the attribute key carrying the error kind on warning and
// error records. Components attach it at the log site, e.g.
// logger.Warn("fetch failed", "url", u, "depth", d, log.KindKey, log.KindFetch).
const KindKey = "kind"

// Error kind values. These mirror the crawl's failure taxonomy; each
// per-page failure is logged under exactly one kind.
const (
	KindInvalidURL   = "invalid_url"
	KindRobotsDenied = "robots_denied"
	KindFetch        = "fetch_error"
	KindExtraction   = "extraction_error"
	KindImage        = "image_conversion_error"
	KindStateStore   = "state_store_error"
	KindAssembly     = "document_assembly_error"
)

// Counts is a point-in-time snapshot of tallied log records.
type Counts struct {
	// Warnings and Errors count records at the respective levels.
	Warnings int
	Errors   int

	// ByKind counts records per error-kind attribute value.
	ByKind map[string]int
}

// tally is the shared mutable counter state. Handlers derived via
// WithAttrs and WithGroup all point at the same tally, so counts
// survive logger.With chains.
type tally struct {
	mu       sync.Mutex
	warnings int
	errors   int
	byKind   map[string]int
}

// TallyHandler wraps an slog.Handler and counts the records flowing
// through it by level and error kind. It never alters the records.
type TallyHandler struct {
	handler slog.Handler
	counts  *tally
}

// NewTallyHandler wraps handler. If handler is nil, records are
// counted against slog's default handler.
func NewTallyHandler(handler slog.Handler) *TallyHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &TallyHandler{
		handler: handler,
		counts:  &tally{byKind: make(map[string]int)},
	}
}

// Enabled reports warnings and errors as always enabled so they reach
// Handle and get counted even when the underlying handler's level
// filter would drop them. Quieter records delegate to the underlying
// handler.
func (h *TallyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelWarn {
		return true
	}
	return h.handler.Enabled(ctx, level)
}

// Handle counts the record and passes it through unchanged.
//
// Counting happens regardless of the underlying handler's level
// filter: a quiet run still reports accurate error totals in the
// final summary.
func (h *TallyHandler) Handle(ctx context.Context, r slog.Record) error {
	h.counts.mu.Lock()
	switch {
	case r.Level >= slog.LevelError:
		h.counts.errors++
	case r.Level >= slog.LevelWarn:
		h.counts.warnings++
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == KindKey && a.Value.Kind() == slog.KindString {
			h.counts.byKind[a.Value.String()]++
			return false
		}
		return true
	})
	h.counts.mu.Unlock()

	if !h.handler.Enabled(ctx, r.Level) {
		return nil
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a handler sharing this handler's counters.
func (h *TallyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TallyHandler{handler: h.handler.WithAttrs(attrs), counts: h.counts}
}

// WithGroup returns a handler sharing this handler's counters.
func (h *TallyHandler) WithGroup(name string) slog.Handler {
	return &TallyHandler{handler: h.handler.WithGroup(name), counts: h.counts}
}

// Counts returns a snapshot of the tallied records.
func (h *TallyHandler) Counts() Counts {
	h.counts.mu.Lock()
	defer h.counts.mu.Unlock()

	byKind := make(map[string]int, len(h.counts.byKind))
	for k, v := range h.counts.byKind {
		byKind[k] = v
	}
	return Counts{
		Warnings: h.counts.warnings,
		Errors:   h.counts.errors,
		ByKind:   byKind,
	}
}

// NewLogger creates a text logger writing to w, wrapped in a
// TallyHandler. Verbose enables debug-level output; otherwise only
// warnings and errors are printed. The returned handler exposes the
// record counts for the crawl summary.
func NewLogger(w io.Writer, verbose bool) (*slog.Logger, *TallyHandler) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	tallied := NewTallyHandler(slog.NewTextHandler(w, opts))
	return slog.New(tallied), tallied
}
