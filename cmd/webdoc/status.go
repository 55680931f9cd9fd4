package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redoracle/webdoc/internal/config"
	"github.com/redoracle/webdoc/internal/state"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the paused crawl, if any",
		Long: `Status inspects the crawl state database and reports whether a paused
crawl is waiting to be resumed, along with its progress.`,
		RunE: runStatusCmd,
	}

	cmd.Flags().String("state-dir", "",
		"Directory holding the crawl state database")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	stateDir, err := cmd.Flags().GetString("state-dir")
	if err != nil {
		return err
	}
	if stateDir == "" {
		stateDir = config.XDGDataDir()
	}

	store, err := state.Open(stateDir)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer store.Close()

	st, err := store.Load(cmd.Context())
	if errors.Is(err, state.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No paused crawl.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load crawl state: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Paused crawl of %s\n", st.SeedURL)
	fmt.Fprintf(out, "  depth limit:      %d\n", st.DepthLimit)
	fmt.Fprintf(out, "  include external: %t\n", st.IncludeExternal)
	fmt.Fprintf(out, "  pages completed:  %d\n", len(st.Results))
	fmt.Fprintf(out, "  pages pending:    %d\n", len(st.Frontier))
	fmt.Fprintf(out, "\nResume with: webdoc crawl %s\n", st.SeedURL)
	return nil
}
