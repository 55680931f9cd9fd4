// Package config defines webdoc's configuration: defaults, validation,
// the optional YAML config file, and environment variable overrides.
package config
