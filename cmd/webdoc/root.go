// Package main provides the entry point for the webdoc CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webdoc.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webdoc",
		Short: "Crawl a website into a single document",
		Long: `webdoc crawls a website breadth-first from a start URL and assembles
the visited pages into one Markdown or JSON document.

The crawler stays within the start URL's origin by default, honors
robots.txt, and paces its requests. Interrupting a crawl with Ctrl-C
checkpoints its progress; running the same crawl again resumes it.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
