// Package document assembles crawl results into a single output
// document. Markdown and JSON renderings share one Document model, so
// both formats present the same pages in the same order.
package document
