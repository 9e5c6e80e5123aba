// Package main is the entry point for the etctl CLI client.
package main

import (
	"github.com/GV888/easy-template-mcp/cmd/etctl/cmd"
)

func main() {
	cmd.Execute()
}
