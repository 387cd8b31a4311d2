// Command dullahanctl is a thin client for dullahand's admin RPC socket —
// grounded on the teacher's cmd/cli/main.go plain verb-dispatch shape,
// extended to the full admin surface of spec.md §6.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/raymond-w-ko/dullahan-sub005/internal/adminrpc"
	"github.com/raymond-w-ko/dullahan-sub005/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	req := adminrpc.Request{Verb: os.Args[1]}
	switch req.Verb {
	case adminrpc.VerbSendText:
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: dullahanctl send-text <paneId> <text>")
			os.Exit(1)
		}
		var paneID int
		if _, err := fmt.Sscanf(os.Args[2], "%d", &paneID); err != nil {
			fmt.Fprintf(os.Stderr, "invalid pane id %q: %v\n", os.Args[2], err)
			os.Exit(1)
		}
		req.PaneID = uint16(paneID)
		req.Text = os.Args[3]
	case "help", "-h", "--help":
		printUsage()
		return
	}

	resp, err := adminrpc.Dial(config.Runtime.AdminSocketPath, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dullahanctl: %v\n", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Fprintf(os.Stderr, "dullahanctl: %s\n", resp.Error)
		os.Exit(1)
	}

	if len(resp.Data) > 0 {
		var buf bytes.Buffer
		if json.Indent(&buf, resp.Data, "", "  ") == nil {
			fmt.Println(buf.String())
		} else {
			fmt.Println(string(resp.Data))
		}
	}
}

func printUsage() {
	fmt.Println("dullahanctl - administer a running dullahand")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dullahanctl <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  ping                       Check the daemon is responsive")
	fmt.Println("  status                     Show live pane ids and client count")
	fmt.Println("  pane-list                  List live pane ids")
	fmt.Println("  send-text <paneId> <text>  Write text into a pane's PTY")
	fmt.Println("  layout-query               List known layout template names")
	fmt.Println("  quit                       Ask the daemon to shut down")
	fmt.Println("  help                       Show this help message")
}
