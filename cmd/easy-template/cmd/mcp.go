package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GV888/easy-template-mcp/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the Easy-Template tools over MCP on stdio",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	srv := mcpserver.New(a.client, Version, log)
	srv.AutoLogin(ctx, cfg.EasyTemplate.ClientID, cfg.EasyTemplate.ClientSecret)

	return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
}
