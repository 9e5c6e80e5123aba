package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func sessionCmd() *cobra.Command {
	sessionRoot := &cobra.Command{
		Use:   "session",
		Short: "Inspect or renew the server's Easy-Template session",
	}
	sessionRoot.AddCommand(sessionStatusCmd(), sessionLoginCmd())
	return sessionRoot
}

func sessionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := newClient().Session(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(s)
			}
			return printSession(os.Stdout, s)
		},
	}
}

func sessionLoginCmd() *cobra.Command {
	var clientID, clientSecret string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Make the server log in",
		Long: "Make the server log in to Easy-Template. Without flags the server\n" +
			"uses its configured credentials.",
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := newClient().Login(context.Background(), clientID, clientSecret)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(s)
			}
			return printSession(os.Stdout, s)
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", "", "client id")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "client secret")

	return cmd
}

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show the daily API call budget",
		RunE: func(_ *cobra.Command, _ []string) error {
			q, err := newClient().Quota(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(q)
			}
			return printQuota(os.Stdout, q)
		},
	}
}
