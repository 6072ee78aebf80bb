// Package main is the entry point for the bdc binary.
package main

import (
	"os"

	"github.com/Kati2710/BDC/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
