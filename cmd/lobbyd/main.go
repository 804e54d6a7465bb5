package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/lobbyd/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		if le := errors.FromError(err, ""); le.Code != "" {
			fmt.Fprint(os.Stderr, le.Format())
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lobbyd",
		Short: "Concurrent game lobby session server",
		Long: `lobbyd accepts WebSocket players, groups them into matches and runs
each match as a session under a fixed concurrency ceiling.

Any non-upgrade request is answered with a JSON listing of the
sessions currently running.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(),
		versionCmd(),
	)
	return root
}
