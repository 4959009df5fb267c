// Command factory runs the factory contract on a local SQLite-backed host.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/factory/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
