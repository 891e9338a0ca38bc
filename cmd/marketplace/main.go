// Command marketplace operates a journaled, role-gated store registry.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/marketplace/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
