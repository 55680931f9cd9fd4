package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".webdoc.yaml"

// ErrConfigNotFound is returned when the configuration file does not
// exist. Callers decide whether that matters: an explicit --config
// path that is missing is an error, a missing default file is not.
var ErrConfigNotFound = errors.New("configuration file not found")

// File mirrors the YAML configuration file. All fields are pointers
// so an absent key leaves the corresponding Config value untouched.
// Durations are strings in Go duration syntax ("30s", "500ms").
type File struct {
	Depth           *int     `yaml:"depth"`
	IncludeExternal *bool    `yaml:"include_external"`
	TextOnly        *bool    `yaml:"text_only"`
	ImageTypes      []string `yaml:"image_types"`
	Interactive     *bool    `yaml:"interactive"`
	Render          *bool    `yaml:"render"`
	UserAgent       *string  `yaml:"user_agent"`
	Output          *string  `yaml:"output"`
	Format          *string  `yaml:"format"`
	Concurrency     *int     `yaml:"concurrency"`
	Timeout         *string  `yaml:"timeout"`
	Delay           *string  `yaml:"delay"`
	MaxBodySize     *int64   `yaml:"max_body_size"`
	StateDir        *string  `yaml:"state_dir"`
}

// LoadConfigFile reads and parses a YAML configuration file.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile locates the configuration file, checking in order:
// the explicit path, .webdoc.yaml in the current directory, and
// .webdoc.yaml in the user's home directory. Returns empty when no
// file is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// Apply overlays the file's values onto cfg. Only keys present in the
// file change anything.
func (f *File) Apply(cfg *Config) error {
	if f.Depth != nil {
		cfg.MaxDepth = *f.Depth
	}
	if f.IncludeExternal != nil {
		cfg.IncludeExternal = *f.IncludeExternal
	}
	if f.TextOnly != nil {
		cfg.TextOnly = *f.TextOnly
	}
	if len(f.ImageTypes) > 0 {
		cfg.ImageTypes = f.ImageTypes
	}
	if f.Interactive != nil {
		cfg.Interactive = *f.Interactive
	}
	if f.Render != nil {
		cfg.DynamicRender = *f.Render
	}
	if f.UserAgent != nil {
		cfg.UserAgent = *f.UserAgent
	}
	if f.Output != nil {
		cfg.Output = *f.Output
	}
	if f.Format != nil {
		cfg.Format = *f.Format
	}
	if f.Concurrency != nil {
		cfg.Concurrency = *f.Concurrency
	}
	if f.Timeout != nil {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if f.Delay != nil {
		d, err := time.ParseDuration(*f.Delay)
		if err != nil {
			return fmt.Errorf("delay: %w", err)
		}
		cfg.Delay = d
	}
	if f.MaxBodySize != nil {
		cfg.MaxBodySize = *f.MaxBodySize
	}
	if f.StateDir != nil {
		cfg.StateDir = *f.StateDir
	}
	return nil
}

// ApplyEnv overlays WEBDOC_* environment variables onto cfg. The crawl
// command loads a .env file first, so deployments can configure the
// crawler without flags.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("WEBDOC_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("WEBDOC_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("WEBDOC_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("WEBDOC_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WEBDOC_DEPTH: %w", err)
		}
		cfg.MaxDepth = n
	}
	if v := os.Getenv("WEBDOC_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WEBDOC_CONCURRENCY: %w", err)
		}
		cfg.Concurrency = n
	}
	if v := os.Getenv("WEBDOC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WEBDOC_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("WEBDOC_INCLUDE_EXTERNAL"); v != "" {
		cfg.IncludeExternal = strings.EqualFold(v, "true") || v == "1"
	}
	return nil
}
