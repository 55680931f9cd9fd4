// Package state persists crawl progress to SQLite so an interrupted
// crawl can resume exactly where it stopped. A saved snapshot holds the
// crawl parameters, the pending frontier, the visited set, and all page
// results collected so far.
package state
