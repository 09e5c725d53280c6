// Package main is the entry point for the beancounter CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/beancounter/cmd/beancounter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
