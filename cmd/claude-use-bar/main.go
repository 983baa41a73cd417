// Package main is the entry point for the claude-use-bar CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joaoalves/claude-use-bar/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
