// Package cmd implements the CLI commands for easy-template.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/GV888/easy-template-mcp/internal/config"
	"github.com/GV888/easy-template-mcp/pkg/logger"
)

var (
	cfgFile  string
	envFiles []string

	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "easy-template",
	Short: "Easy-Template listing API client, MCP server and chat bot",
	Long: "Keeps an authenticated Easy-Template session and exposes the listing API " +
		"as an MCP server, an HTTP API, a Telegram bot and a seller-event watcher.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().
		StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")
	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = c
	// stdout may carry protocol traffic (mcp); logger.New writes to stderr.
	log = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}
