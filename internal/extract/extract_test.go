package extract

import (
	"reflect"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>
    Widget   Catalog
  </title>
  <style>body { color: red; }</style>
</head>
<body>
  <script>console.log("noise");</script>
  <h1>Widgets</h1>
  <p>Quality    widgets
     since 1999.</p>
  <a href="/products">Products</a>
  <a href="https://example.org/partners">Partners</a>
  <a href="#top">Top</a>
  <a href="  ">blank</a>
  <img src="data:image/gif;base64,R0lGOD">
  <img src="/img/hero.png" alt="hero">
  <img src="/img/second.png">
</body>
</html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	e := New()
	content, err := e.Extract("https://example.com/catalog/", []byte(samplePage))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if content.Title != "Widget Catalog" {
		t.Errorf("Title = %q, want collapsed title", content.Title)
	}

	wantLinks := []string{"/products", "https://example.org/partners", "#top"}
	if !reflect.DeepEqual(content.Links, wantLinks) {
		t.Errorf("Links = %v, want %v in document order", content.Links, wantLinks)
	}

	if content.ImageURL != "https://example.com/img/hero.png" {
		t.Errorf("ImageURL = %q, want first non-data image resolved", content.ImageURL)
	}
}

func TestExtractTextStripsMarkupAndScripts(t *testing.T) {
	t.Parallel()

	e := New()
	content, err := e.Extract("https://example.com/", []byte(samplePage))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if content.Text != "Widgets Quality widgets since 1999." {
		t.Errorf("Text = %q, want stripped and collapsed text", content.Text)
	}
}

func TestExtractTextOnlySkipsImages(t *testing.T) {
	t.Parallel()

	e := New(WithTextOnly(true))
	content, err := e.Extract("https://example.com/", []byte(samplePage))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if content.ImageURL != "" {
		t.Errorf("ImageURL = %q, want empty in text-only mode", content.ImageURL)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	t.Parallel()

	e := New()
	content, err := e.Extract("https://example.com/", []byte(""))
	if err != nil {
		t.Fatalf("Extract failed on empty body: %v", err)
	}

	if content.Title != "" || content.Text != "" || content.ImageURL != "" {
		t.Errorf("content = %+v, want all fields empty", content)
	}
	if content.Links == nil || len(content.Links) != 0 {
		t.Errorf("Links = %v, want empty non-nil slice", content.Links)
	}
}

func TestExtractNormalizesUnicode(t *testing.T) {
	t.Parallel()

	// "é" as 'e' plus combining acute accent; NFC folds it to a
	// single code point.
	page := "<html><body><p>café</p></body></html>"

	e := New()
	content, err := e.Extract("https://example.com/", []byte(page))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if content.Text != "café" {
		t.Errorf("Text = %q, want NFC-composed form", content.Text)
	}
}

func TestExtractRelativeImageAgainstNestedPage(t *testing.T) {
	t.Parallel()

	page := `<html><body><img src="thumb.jpg"></body></html>`

	e := New()
	content, err := e.Extract("https://example.com/blog/post/", []byte(page))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if content.ImageURL != "https://example.com/blog/post/thumb.jpg" {
		t.Errorf("ImageURL = %q, want resolution against page path", content.ImageURL)
	}
}
