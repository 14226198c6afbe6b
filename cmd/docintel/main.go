// Command docintel is the operator CLI: batch extraction, schema migration,
// the review API server, and reference index loading.
package main

import (
	"os"

	"github.com/bpointel/docintel/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
