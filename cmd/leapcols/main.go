// Package main is the leapcols command-line entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/leapcols/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
