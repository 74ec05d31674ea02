// Package main is the entry point for the guidarr application.
package main

import (
	"os"

	"github.com/guidarr/guidarr/cmd/guidarr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
