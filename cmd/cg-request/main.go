// Package main is the entry point for the cg-request CLI.
package main

import (
	"os"

	"github.com/allendavis-developer/cg-request/cmd/cg-request/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
