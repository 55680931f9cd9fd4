// Package log provides webdoc's structured logging setup on top of
// log/slog.
//
// Every crawl failure is logged with the URL, depth, and an error-kind
// attribute so problems can be diagnosed after the fact. The
// TallyHandler wraps any slog.Handler and counts records per kind as
// they pass through; the crawl command reads the counts back to print
// the end-of-run summary (pages fetched, fetch errors, images skipped,
// and so on) without threading counters through every component.
package log
