package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/redoracle/webdoc/internal/config"
)

//go:embed templates/webdoc.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new webdoc configuration file",
		Long: `Initialize creates a new .webdoc.yaml configuration file in the current
directory.

The generated file includes:
- Default settings for crawl depth, concurrency, and timeouts
- Commented examples for image filtering and dynamic rendering
- Documentation for all available options

Examples:
  # Create .webdoc.yaml in current directory
  webdoc init

  # Create config file at a specific path
  webdoc init -o myconfig.yaml

  # Force overwrite existing file
  webdoc init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/webdoc.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file to adjust crawl settings such as:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Crawl depth and concurrency")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Image type filtering")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Dynamic rendering for script-heavy sites")

	return nil
}
