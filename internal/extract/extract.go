package extract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// ErrParse marks HTML that could not be parsed at all. goquery is
// lenient with malformed markup, so this only fires on truly broken
// input.
var ErrParse = errors.New("HTML parse failed")

// Content is everything extracted from a single page.
//
// Design decision: We return one struct from a single parsing pass
// rather than exposing per-field methods because:
//  1. The document assembler needs all fields together anyway
//  2. One goquery.Document build per page, not one per field
//  3. Callers can ignore what they don't use
type Content struct {
	// Title is the text of the page's <title> element, whitespace
	// collapsed. Empty when the page has no title.
	Title string

	// Text is the page's readable text with script, style, and
	// markup stripped, normalized to NFC with runs of whitespace
	// collapsed to single spaces.
	Text string

	// Links are the raw href values of anchor elements in document
	// order. They are deliberately unresolved: scope classification
	// owns normalization, and it needs the page URL as base.
	Links []string

	// ImageURL is the first <img> src resolved against the page URL,
	// or empty when the page has no usable image.
	ImageURL string
}

// Extractor parses HTML pages. The zero value is not usable; call New.
type Extractor struct {
	// textOnly skips image extraction entirely.
	textOnly bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTextOnly disables image extraction.
func WithTextOnly(textOnly bool) Option {
	return func(e *Extractor) {
		e.textOnly = textOnly
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses the HTML body of pageURL and returns its content.
func (e *Extractor) Extract(pageURL string, body []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, pageURL, err)
	}

	content := &Content{
		Title: collapseWhitespace(doc.Find("title").First().Text()),
		Links: make([]string, 0),
	}

	// Drop non-content elements before collecting text.
	doc.Find("script, style, noscript, template").Remove()
	content.Text = sanitizeText(doc.Find("body").Text())
	if content.Text == "" {
		// Fragment without a body element; take everything.
		content.Text = sanitizeText(doc.Text())
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href != "" {
			content.Links = append(content.Links, href)
		}
	})

	if !e.textOnly {
		content.ImageURL = firstImage(doc, pageURL)
	}

	return content, nil
}

// firstImage returns the first <img> src resolved against pageURL.
func firstImage(doc *goquery.Document, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	var resolved string
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			return true
		}
		ref, err := url.Parse(src)
		if err != nil {
			return true
		}
		resolved = base.ResolveReference(ref).String()
		return false
	})

	return resolved
}

// sanitizeText normalizes extracted text to NFC and collapses
// whitespace. Mixed-script pages otherwise yield visually identical
// strings that compare unequal, which breaks document deduplication
// downstream.
func sanitizeText(s string) string {
	return collapseWhitespace(norm.NFC.String(s))
}

// collapseWhitespace trims and replaces runs of whitespace, including
// newlines from block layout, with single spaces.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}

	return b.String()
}
