// Package main provides the CLI entry point for vibecore, a single-process
// interactive coding agent. Grounded on the teacher's cmd/nexus cobra-based
// entrypoint, trimmed to the command tree SPEC_FULL.md §6.3 names: `run` and
// the `auth` subcommands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/serialx/vibecore/internal/core"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an EngineError (a user-actionable failure: bad input,
// missing session, expired credentials) to exit 1, and anything else
// (a bug, an unexpected I/O failure) to exit 2, per SPEC_FULL.md §6.3.
func exitCodeFor(err error) int {
	var ee *core.EngineError
	if errors.As(err, &ee) {
		return 1
	}
	return 2
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "vibecore",
		Short:        "vibecore - a single-process interactive coding agent",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildRunCmd(), buildAuthCmd())
	return rootCmd
}
