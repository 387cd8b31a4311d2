// Package cmd wires Dullahan's cobra command surface: "serve" starts the
// daemon, "version" reports build info, and "quit" asks a running daemon
// to shut down over the admin socket.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// SetVersionInfo sets the version information from the main package.
func SetVersionInfo(v, c, d, b string) {
	version = v
	commit = c
	date = d
	builtBy = b
}

var rootCmd = &cobra.Command{
	Use:     "dullahand",
	Short:   "Dullahan terminal multiplexer server",
	Long:    "dullahand is the Dullahan server: it owns PTYs and terminal state and replicates panes to remote clients over WebSocket.",
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dullahand version %s\n", version)
		if commit != "none" && commit != "" {
			fmt.Printf("Git commit: %s\n", commit)
		}
		if date != "unknown" && date != "" {
			fmt.Printf("Built: %s\n", date)
		}
		if builtBy != "unknown" && builtBy != "" {
			fmt.Printf("Built by: %s\n", builtBy)
		}
	},
}
