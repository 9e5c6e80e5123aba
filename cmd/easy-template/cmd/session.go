package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

var (
	loginClientID     string
	loginClientSecret string
	statusRefresh     bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and persist the session",
	RunE:  runLogin,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted session state",
	RunE:  runStatus,
}

func init() {
	loginCmd.Flags().StringVar(&loginClientID, "client-id", "", "client id (default from config)")
	loginCmd.Flags().StringVar(&loginClientSecret, "client-secret", "", "client secret (default from config)")
	statusCmd.Flags().BoolVar(&statusRefresh, "refresh", false, "refresh the session if it is about to expire")
	rootCmd.AddCommand(loginCmd, statusCmd)
}

func runLogin(_ *cobra.Command, _ []string) error {
	id, secret := loginClientID, loginClientSecret
	if id == "" && secret == "" {
		id, secret = cfg.EasyTemplate.ClientID, cfg.EasyTemplate.ClientSecret
	}
	if id == "" || secret == "" {
		return errors.New("client id and secret are required (flags, config or ET_CLIENT_ID/ET_CLIENT_SECRET)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.client.Login(ctx, id, secret); err != nil {
		return err
	}

	access, refresh := a.client.Expiries()
	fmt.Println("Logged in.")
	fmt.Printf("Access token valid until:  %s\n", access.Format(time.RFC3339))
	fmt.Printf("Refresh token valid until: %s\n", refresh.Format(time.RFC3339))
	return nil
}

func runStatus(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if statusRefresh {
		if err := a.client.EnsureValid(ctx); err != nil {
			return err
		}
	}

	state := a.client.State()
	fmt.Printf("Session: %s\n", state)
	if state == easytemplate.StateUnauthenticated {
		return nil
	}

	access, refresh := a.client.Expiries()
	fmt.Printf("Access token expires:  %s\n", access.Format(time.RFC3339))
	fmt.Printf("Refresh token expires: %s\n", refresh.Format(time.RFC3339))
	return nil
}
