// Package main is the entry point for the wlh CLI tool.
package main

import (
	"os"

	"github.com/aidanlsb/wlh/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
