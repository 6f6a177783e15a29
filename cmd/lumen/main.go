package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lumen",
		Short: "Reactive signal runtime for Go",
		Long: `Lumen is a fine-grained reactive runtime for Go.

Signals hold state, computeds derive from it lazily, and effects run
when their dependencies change. The lumen CLI ships two utilities:

  • serve: expose a demo graph over HTTP/WebSocket with Prometheus metrics
  • bench: measure propagation latency through signal chains`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		benchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
