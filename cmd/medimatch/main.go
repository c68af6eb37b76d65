// The medimatch binary is the command-line client for the MediMatch API.
package main

import (
	"os"

	"github.com/medimatch/medimatch/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		// Execute already printed the error through the root command's
		// error handling.
		os.Exit(1)
	}
}
