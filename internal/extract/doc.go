// Package extract pulls structured content out of fetched HTML pages:
// the title, readable text, outbound links, and a representative image.
package extract
