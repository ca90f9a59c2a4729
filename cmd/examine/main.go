// Package main provides the entry point for the examine CLI.
package main

import (
	"os"

	"github.com/zhhbo/Examine/cmd/examine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
