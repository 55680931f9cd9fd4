// Package crawler contains the crawl controller: the state machine
// that drives breadth-first traversal from a seed URL, coordinating
// scope filtering, robots.txt policy, the fetch pipeline, content
// extraction, and persistent checkpoints.
package crawler
