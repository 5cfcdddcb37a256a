// swift: command-line client for a swift server.
package main

import (
	"os"

	"github.com/teslashibe/go-swift/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
