package main

import (
	"context"
	"fmt"

	apikeydomain "github.com/brikx/coach/internal/apikey/domain"
	"github.com/spf13/cobra"
)

var apiKeyName string

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key for --user, creating the user if needed",
	Long: `create prints the raw key exactly once. Only its hash is stored, so
copy it before closing the terminal.`,
	Args: cobra.NoArgs,
	RunE: runAPIKeyCreate,
}

func init() {
	apiKeyCreateCmd.Flags().StringVar(&apiKeyName, "name", "cli", "Label for the key")
	apiKeyCmd.AddCommand(apiKeyCreateCmd)
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	return withServices(cmd, func(ctx context.Context, svc services) error {
		secret, err := svc.APIKeys.Create(ctx, apikeydomain.CreateRequest{Name: apiKeyName})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), secret)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "key id: %s\napi key: %s\n", secret.KeyID, secret.APIKey)
		return err
	})
}
