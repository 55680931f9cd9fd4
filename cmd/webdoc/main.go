// Package main provides the entry point for the webdoc CLI.
//
// webdoc crawls a website breadth-first and assembles the pages it
// visits into a single Markdown or JSON document. Interrupted crawls
// are checkpointed and resume where they left off.
//
// Usage:
//
//	webdoc crawl https://example.com
//	webdoc status
//
// See --help for all available options.
package main

// main is the entry point for webdoc.
func main() {
	Execute()
}
