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
		Use:   "wsession",
		Short: "Interactive websocket session client",
		Long: `wsession opens a single websocket session and bridges it to the terminal.

Every line read from stdin is sent as a text message and every event
of the session (opened, data received, closed) is printed to stdout.
The session is kept alive with a ping after each idle period.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		dialCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
