package client

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// ConfigCmd manages the per-user client configuration.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the client configuration",
	}

	cmd.AddCommand(configSetCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configClearCmd())

	return cmd
}

func configSetCmd() *cobra.Command {
	var (
		apiURL   string
		apiToken string
		verify   bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the API URL and token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			cfg := &GlobalConfig{APIURL: defaultAPIURL}
			if existing != nil {
				cfg = existing
			}
			if apiURL != "" {
				cfg.APIURL = apiURL
			}
			if cmd.Flags().Changed("token") {
				cfg.APIToken = apiToken
			}

			if verify {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				api := NewAPIClientWithConfig(cfg.APIToken, cfg.APIURL)
				if err := api.Ready(ctx); err != nil {
					return fmt.Errorf("server at %s is not ready: %w", cfg.APIURL, err)
				}
			}

			if err := SaveGlobalConfig(cfg); err != nil {
				return err
			}
			path, _ := GetConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "url", "", "API base URL")
	cmd.Flags().StringVar(&apiToken, "token", "", "API bearer token (empty clears it)")
	cmd.Flags().BoolVar(&verify, "verify", true, "Check that the server is reachable before saving")

	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective API URL and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagURL, _ := cmd.Flags().GetString("api-url")
			flagToken, _ := cmd.Flags().GetString("api-token")
			creds, err := ResolveCredentials(flagURL, flagToken)
			if err != nil {
				return err
			}

			token := "(none)"
			if creds.APIToken != "" {
				token = maskToken(creds.APIToken)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "API URL:   %s (%s)\n", creds.APIURL, creds.Source)
			fmt.Fprintf(w, "API token: %s\n", token)
			return nil
		},
	}
}

func configClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration cleared")
			return nil
		},
	}
}

// StatusCmd checks server readiness and prints its version.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the server is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			info, err := api.Version(ctx)
			if err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}
			if err := api.Ready(ctx); err != nil {
				return fmt.Errorf("%s %s is not ready: %w", info["app_name"], info["app_version"], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s) is ready\n",
				info["app_name"], info["app_version"], info["environment"], info["git_sha"])
			return nil
		},
	}
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
