package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/redoracle/webdoc/internal/config"
	"github.com/redoracle/webdoc/internal/document"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	for _, name := range []string{
		"depth", "include-external", "text-only", "image-types",
		"interactive", "render", "user-agent", "concurrency",
		"timeout", "delay", "max-body-size", "output", "format",
		"config", "state-dir",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag %q", name)
		}
	}

	if cmd.Flags().Lookup("depth").DefValue != "3" {
		t.Errorf("depth default = %q, want 3", cmd.Flags().Lookup("depth").DefValue)
	}
}

// TestBuildConfigPrecedence verifies flags override environment, which
// overrides the config file.
func TestBuildConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "webdoc.yaml")
	if err := os.WriteFile(cfgPath, []byte("depth: 7\nconcurrency: 9\noutput: from-file.md\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("WEBDOC_DEPTH", "5")

	cmd := NewCrawlCmd()
	if err := cmd.Flags().Parse([]string{"-c", cfgPath, "-d", "2"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := buildConfig(cmd, []string{"https://example.com"})
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}

	if cfg.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want flag value 2 over env and file", cfg.MaxDepth)
	}
	if cfg.Concurrency != 9 {
		t.Errorf("Concurrency = %d, want file value 9", cfg.Concurrency)
	}
	if cfg.Output != "from-file.md" {
		t.Errorf("Output = %q, want file value", cfg.Output)
	}
	if cfg.StartURL != "https://example.com" {
		t.Errorf("StartURL = %q, want positional argument", cfg.StartURL)
	}
}

// TestBuildConfigMissingExplicitFile verifies an explicit --config path
// that doesn't exist is an error, unlike a missing default file.
func TestBuildConfigMissingExplicitFile(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()
	if err := cmd.Flags().Parse([]string{"-c", "/nonexistent/webdoc.yaml"}); err != nil {
		t.Fatal(err)
	}

	if _, err := buildConfig(cmd, []string{"https://example.com"}); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

// TestCrawlCmdEndToEnd crawls a local test site through the full CLI
// into a Markdown document.
func TestCrawlCmdEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/robots.txt":
			http.NotFound(w, r)
		case "/about":
			fmt.Fprint(w, `<html><head><title>About</title></head><body>About us.</body></html>`)
		default:
			fmt.Fprint(w, `<html><head><title>Site Home</title></head><body><a href="/about">about</a></body></html>`)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "site.md")

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"crawl",
		"--state-dir", filepath.Join(dir, "state"),
		"-o", out,
		"-d", "1",
		"--delay", "0s",
		srv.URL,
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("crawl command failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output document not written: %v", err)
	}
	for _, want := range []string{"# Site Home", "## About", "About us."} {
		if !strings.Contains(string(data), want) {
			t.Errorf("document missing %q", want)
		}
	}
}

// TestCrawlCmdJSONOutput crawls into a JSON document.
func TestCrawlCmdJSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Only Page</title></head><body>hi</body></html>`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "site.json")

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"crawl",
		"--state-dir", filepath.Join(dir, "state"),
		"-o", out,
		"-f", config.FormatJSON,
		"-d", "0",
		"--delay", "0s",
		srv.URL,
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("crawl command failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output document not written: %v", err)
	}

	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.Stats.Pages != 1 || doc.Pages[0].Title != "Only Page" {
		t.Errorf("document = %+v, want one page titled 'Only Page'", doc.Stats)
	}
}

// TestStatusCmdNoState verifies status on an empty state directory.
func TestStatusCmdNoState(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewStatusCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--state-dir", t.TempDir()})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out.String(), "No paused crawl") {
		t.Errorf("output = %q, want no-crawl message", out.String())
	}
}
