package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raymond-w-ko/dullahan-sub005/internal/adminrpc"
	"github.com/raymond-w-ko/dullahan-sub005/internal/config"
)

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Ask a running daemon to shut down",
	Long:  "quit sends a quit command over the admin socket to a running dullahand, asking it to tear down every pane and exit.",
	RunE:  runQuit,
}

func init() {
	rootCmd.AddCommand(quitCmd)
}

func runQuit(c *cobra.Command, args []string) error {
	resp, err := adminrpc.Dial(config.Runtime.AdminSocketPath, adminrpc.Request{Verb: adminrpc.VerbQuit})
	if err != nil {
		return fmt.Errorf("quit: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("quit: daemon reported error: %s", resp.Error)
	}
	fmt.Println("dullahand is shutting down")
	return nil
}
