// Package main provides the entry point for the PageForge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/pageforge-ai/pageforge/cmd/pageforge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
