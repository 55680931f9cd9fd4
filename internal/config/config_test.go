package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfigDefaults verifies the documented defaults.
func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, DefaultMaxDepth)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, DefaultConcurrency)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, DefaultUserAgent)
	}
	if cfg.Format != FormatMarkdown {
		t.Errorf("Format = %q, want %q", cfg.Format, FormatMarkdown)
	}
	if cfg.IncludeExternal {
		t.Error("IncludeExternal should default to false")
	}
	if cfg.Interactive {
		t.Error("Interactive should default to false")
	}
	if cfg.DynamicRender {
		t.Error("DynamicRender should default to false")
	}
}

// TestValidate exercises the validation decision table.
func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.StartURL = "https://example.com"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(_ *Config) {}, wantErr: nil},
		{name: "missing start URL", mutate: func(c *Config) { c.StartURL = " " }, wantErr: ErrNoStartURL},
		{name: "negative depth", mutate: func(c *Config) { c.MaxDepth = -1 }, wantErr: ErrInvalidDepth},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: ErrInvalidConcurrency},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative delay", mutate: func(c *Config) { c.Delay = -time.Second }, wantErr: ErrInvalidDelay},
		{name: "negative body size", mutate: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "unknown format", mutate: func(c *Config) { c.Format = "pdf" }, wantErr: ErrInvalidFormat},
		{name: "json format accepted", mutate: func(c *Config) { c.Format = FormatJSON }, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestNormalizedImageTypes verifies extension normalization.
func TestNormalizedImageTypes(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.ImageTypes = []string{".JPG", "png", " .gif ", ""}

	got := cfg.NormalizedImageTypes()
	want := []string{"jpg", "png", "gif"}
	if len(got) != len(want) {
		t.Fatalf("NormalizedImageTypes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizedImageTypes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestLoadConfigFile verifies YAML parsing and the not-found sentinel.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "webdoc.yaml")
		content := `
depth: 5
include_external: true
format: json
timeout: 45s
image_types:
  - jpg
  - png
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile failed: %v", err)
		}

		cfg := NewConfig()
		cfg.StartURL = "https://example.com"
		if err := f.Apply(cfg); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}

		if cfg.MaxDepth != 5 {
			t.Errorf("MaxDepth = %d, want 5", cfg.MaxDepth)
		}
		if !cfg.IncludeExternal {
			t.Error("IncludeExternal not applied")
		}
		if cfg.Format != FormatJSON {
			t.Errorf("Format = %q, want json", cfg.Format)
		}
		if cfg.Timeout != 45*time.Second {
			t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
		}
		if len(cfg.ImageTypes) != 2 {
			t.Errorf("ImageTypes = %v, want 2 entries", cfg.ImageTypes)
		}
		// Keys absent from the file keep their defaults.
		if cfg.Concurrency != DefaultConcurrency {
			t.Errorf("Concurrency = %d, want default %d", cfg.Concurrency, DefaultConcurrency)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "webdoc.yaml")
		if err := os.WriteFile(path, []byte("timeout: fast\n"), 0600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile failed: %v", err)
		}
		if err := f.Apply(NewConfig()); err == nil {
			t.Error("expected error for unparseable duration")
		}
	})
}

// TestApplyEnv verifies environment overrides.
func TestApplyEnv(t *testing.T) {
	t.Setenv("WEBDOC_DEPTH", "7")
	t.Setenv("WEBDOC_USER_AGENT", "custom-agent/2.0")
	t.Setenv("WEBDOC_INCLUDE_EXTERNAL", "true")

	cfg := NewConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.MaxDepth != 7 {
		t.Errorf("MaxDepth = %d, want 7", cfg.MaxDepth)
	}
	if cfg.UserAgent != "custom-agent/2.0" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if !cfg.IncludeExternal {
		t.Error("IncludeExternal not applied from env")
	}
}

// TestApplyEnvRejectsGarbage verifies numeric env values are validated.
func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv("WEBDOC_DEPTH", "deep")

	if err := ApplyEnv(NewConfig()); err == nil {
		t.Error("expected error for non-numeric WEBDOC_DEPTH")
	}
}
