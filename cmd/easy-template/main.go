// Package main is the entry point for easy-template.
package main

import (
	"os"

	"github.com/GV888/easy-template-mcp/cmd/easy-template/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
