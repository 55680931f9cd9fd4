package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/markdown"
)

// MarkdownWriter renders documents as GitHub-flavored Markdown.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// imageDir, when non-empty, is the directory where page images are
	// written as JPEG files and referenced from the document. When
	// empty, images are omitted from the rendering.
	imageDir string

	// imageRef is the path prefix used in image links, typically the
	// imageDir base name so links stay relative to the document.
	imageRef string
}

// MarkdownOption configures a MarkdownWriter.
type MarkdownOption func(*MarkdownWriter)

// WithImageDir makes the writer save page images under dir and link
// them from the document using dir's base name as a relative prefix.
func WithImageDir(dir string) MarkdownOption {
	return func(w *MarkdownWriter) {
		w.imageDir = dir
		w.imageRef = filepath.Base(dir)
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write renders the document in Markdown format.
func (w *MarkdownWriter) Write(doc *Document) (int, error) {
	if w.imageDir != "" && doc.Stats.Images > 0 {
		if err := os.MkdirAll(w.imageDir, 0750); err != nil {
			return 0, fmt.Errorf("failed to create image directory: %w", err)
		}
	}

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, doc)
	if err := w.writePages(md, doc); err != nil {
		return 0, err
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the document title and crawl summary.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, doc *Document) {
	md.H1(doc.Title())
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + doc.SeedURL + "`"},
			{"Generated", doc.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages", strconv.Itoa(doc.Stats.Pages)},
			{"Failed Fetches", strconv.Itoa(doc.Stats.Failures)},
			{"External Pages", strconv.Itoa(doc.Stats.External)},
			{"Images", strconv.Itoa(doc.Stats.Images)},
		},
	})
	md.PlainText("")

	if doc.Stats.Failures > 0 {
		md.Warningf("%d page(s) could not be fetched; their entries list the error instead of content.",
			doc.Stats.Failures)
		md.PlainText("")
	}
}

// writePages writes one section per crawled page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, doc *Document) error {
	for i, page := range doc.Pages {
		title := page.Title
		if title == "" {
			title = page.URL
		}
		md.H2(title)
		md.PlainText("")

		rows := [][]string{
			{"URL", "`" + page.URL + "`"},
			{"Depth", strconv.Itoa(page.Depth)},
		}
		if page.External {
			rows = append(rows, []string{"Scope", "external"})
		}
		if page.StatusCode != 0 {
			rows = append(rows, []string{"Status", strconv.Itoa(page.StatusCode)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Value"},
			Rows:   rows,
		})
		md.PlainText("")

		if page.Failed() {
			md.Cautionf("Fetch failed: %s", page.FetchErr)
			md.PlainText("")
			continue
		}

		if w.imageDir != "" && len(page.Image) > 0 {
			ref, err := w.saveImage(i, page.Image)
			if err != nil {
				return err
			}
			md.PlainTextf("![%s](%s)", title, ref)
			md.PlainText("")
		}

		if page.Text != "" {
			md.PlainText(page.Text)
			md.PlainText("")
		}
	}
	return nil
}

// saveImage writes one page image to the image directory and returns
// the relative reference to embed.
func (w *MarkdownWriter) saveImage(pageIndex int, data []byte) (string, error) {
	name := fmt.Sprintf("page-%03d.jpg", pageIndex+1)
	path := filepath.Join(w.imageDir, name)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write image %s: %w", name, err)
	}

	return w.imageRef + "/" + name, nil
}

// writeFooter writes the document footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [webdoc](https://github.com/redoracle/webdoc)*")
}
