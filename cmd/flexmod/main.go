// Package main provides the entry point for the FlexMod CLI.
package main

import (
	"fmt"
	"os"

	"github.com/flexmod/flexmod/cmd/flexmod/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
