package document

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/redoracle/webdoc/internal/model"
)

func samplePages() []*model.PageResult {
	return []*model.PageResult{
		{
			URL:        "https://example.com/",
			Depth:      0,
			StatusCode: 200,
			Title:      "Example Home",
			Text:       "Welcome to the example site.",
			ImageURL:   "https://example.com/hero.png",
			Image:      []byte{0xff, 0xd8, 0xff, 0xe0, 0x00},
			Links:      []string{"https://example.com/about"},
		},
		{
			URL:        "https://example.com/about",
			Depth:      1,
			StatusCode: 200,
			Title:      "About",
			Text:       "We make examples.",
		},
		{
			URL:      "https://example.com/missing",
			Depth:    1,
			FetchErr: "unexpected HTTP status: 404 Not Found",
		},
		{
			URL:        "https://partner.example.org/",
			Depth:      1,
			External:   true,
			StatusCode: 200,
			Title:      "Partner",
			Text:       "A partner site.",
		},
	}
}

func TestNewComputesStats(t *testing.T) {
	t.Parallel()

	doc := New("https://example.com/", samplePages())

	want := Stats{Pages: 4, Failures: 1, External: 1, Images: 1}
	if doc.Stats != want {
		t.Errorf("Stats = %+v, want %+v", doc.Stats, want)
	}
	if doc.Title() != "Example Home" {
		t.Errorf("Title = %q, want seed page title", doc.Title())
	}
}

func TestTitleFallsBackToSeedURL(t *testing.T) {
	t.Parallel()

	doc := New("https://example.com/", []*model.PageResult{
		{URL: "https://example.com/", FetchErr: "connection refused"},
	})
	if doc.Title() != "https://example.com/" {
		t.Errorf("Title = %q, want seed URL fallback", doc.Title())
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	doc := New("https://example.com/", samplePages())

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)
	if _, err := w.Write(doc); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Example Home",
		"## About",
		"We make examples.",
		"## https://example.com/missing", // failed page falls back to URL heading
		"404 Not Found",
		"## Partner",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}

	// Pages must appear in crawl order.
	if strings.Index(out, "## About") > strings.Index(out, "## Partner") {
		t.Error("pages rendered out of crawl order")
	}

	// No image dir configured, so no image reference.
	if strings.Contains(out, "page-001.jpg") {
		t.Error("image referenced without an image directory")
	}
}

func TestMarkdownWriterSavesImages(t *testing.T) {
	t.Parallel()

	doc := New("https://example.com/", samplePages())
	imageDir := filepath.Join(t.TempDir(), "images")

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf, WithImageDir(imageDir))
	if _, err := w.Write(doc); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !strings.Contains(buf.String(), "![Example Home](images/page-001.jpg)") {
		t.Error("markdown output missing relative image reference")
	}

	data, err := os.ReadFile(filepath.Join(imageDir, "page-001.jpg"))
	if err != nil {
		t.Fatalf("image file not written: %v", err)
	}
	if !bytes.Equal(data, doc.Pages[0].Image) {
		t.Error("image file content differs from page image")
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	doc := New("https://example.com/", samplePages())

	var buf bytes.Buffer
	w := NewJSONWriter(&buf, WithPrettyPrint())
	n, err := w.Write(doc)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}

	var got Document
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got.SeedURL != doc.SeedURL {
		t.Errorf("SeedURL = %q, want %q", got.SeedURL, doc.SeedURL)
	}
	if len(got.Pages) != 4 {
		t.Errorf("Pages = %d, want 4", len(got.Pages))
	}
	if got.Stats != doc.Stats {
		t.Errorf("Stats = %+v, want %+v", got.Stats, doc.Stats)
	}
	if !bytes.Equal(got.Pages[0].Image, doc.Pages[0].Image) {
		t.Error("image bytes did not survive the JSON round trip")
	}
}
