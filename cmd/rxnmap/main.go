// Command rxnmap builds the canonical reaction to gene rule mapping.
package main

import (
	"os"

	"github.com/roach88/rxnmap/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
