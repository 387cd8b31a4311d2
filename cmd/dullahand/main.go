// Command dullahand is the Dullahan terminal multiplexer server.
package main

import (
	"github.com/raymond-w-ko/dullahan-sub005/internal/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date, builtBy)
	cmd.Execute()
}
