package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Release builds stamp these via -ldflags; a plain `go install` leaves
// them empty and the banner falls back to the VCS metadata the
// toolchain embeds in the binary.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildVersion resolves the version banner fields. Explicit ldflags
// values win over debug.ReadBuildInfo.
func buildVersion() (ver, rev, built string) {
	ver, rev, built = version, commit, date

	if info, ok := debug.ReadBuildInfo(); ok {
		if ver == "" {
			ver = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if rev == "" {
					rev = s.Value
					if len(rev) > 7 {
						rev = rev[:7]
					}
				}
			case "vcs.time":
				if built == "" {
					built = s.Value
				}
			}
		}
	}

	if ver == "" {
		ver = "(devel)"
	}
	if rev == "" {
		rev = "unknown"
	}
	if built == "" {
		built = "unknown"
	}
	return ver, rev, built
}

// getVersion returns just the version, for cobra's --version flag.
func getVersion() string {
	ver, _, _ := buildVersion()
	return ver
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the webdoc version along with the commit and date it was built from.`,
		Run: func(cmd *cobra.Command, _ []string) {
			ver, rev, built := buildVersion()
			fmt.Fprintf(cmd.OutOrStdout(), "webdoc version %s (commit %s, built %s)\n",
				ver, rev, built)
		},
	}
}
