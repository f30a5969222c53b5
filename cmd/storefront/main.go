// Command storefront is the command-line client for the storefront
// marketplace.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/storefront/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
