package document

import (
	"io"
	"time"

	"github.com/redoracle/webdoc/internal/model"
)

// Document is an assembled crawl ready for rendering. Pages appear in
// crawl order: the seed first, then each depth level in discovery order.
type Document struct {
	// SeedURL is the normalized URL the crawl started from.
	SeedURL string `json:"seed_url"`

	// GeneratedAt is when the document was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// Pages holds every processed page, including failed fetches.
	Pages []*model.PageResult `json:"pages"`

	// Stats summarizes the crawl.
	Stats Stats `json:"stats"`
}

// Stats holds crawl summary counts.
type Stats struct {
	// Pages is the total number of processed pages.
	Pages int `json:"pages"`

	// Failures is the number of pages whose fetch failed.
	Failures int `json:"failures"`

	// External is the number of pages outside the seed's origin.
	External int `json:"external"`

	// Images is the number of pages carrying a converted image.
	Images int `json:"images"`
}

// New assembles a Document from crawl results.
func New(seedURL string, pages []*model.PageResult) *Document {
	doc := &Document{
		SeedURL:     seedURL,
		GeneratedAt: time.Now().UTC(),
		Pages:       pages,
	}
	if doc.Pages == nil {
		doc.Pages = make([]*model.PageResult, 0)
	}

	for _, page := range doc.Pages {
		doc.Stats.Pages++
		if page.Failed() {
			doc.Stats.Failures++
		}
		if page.External {
			doc.Stats.External++
		}
		if len(page.Image) > 0 {
			doc.Stats.Images++
		}
	}

	return doc
}

// Title returns the document title: the seed page's title when it has
// one, the seed URL otherwise.
func (d *Document) Title() string {
	if len(d.Pages) > 0 && d.Pages[0].Title != "" {
		return d.Pages[0].Title
	}
	return d.SeedURL
}

// Writer renders an assembled Document to a destination format.
//
// Design decision: We use an interface rather than format switches so
// the crawl command can pick a renderer from configuration and writing
// stays testable against bytes.Buffer.
type Writer interface {
	// Write renders the document. Returns the number of bytes written
	// and any error encountered. Rendering errors are fatal to the
	// run: a truncated document is worse than no document.
	Write(doc *Document) (int, error)
}

// baseWriter provides the shared output destination for writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
