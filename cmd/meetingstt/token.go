package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goodtune/meetingstt/internal/api"
	"github.com/goodtune/meetingstt/internal/config"
	"github.com/spf13/cobra"
)

var (
	tokenUsername string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate an admin API token",
	Long:  `Generate a bearer token for the /admin endpoints, signed with server.admin_jwt_secret.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "admin", "Name recorded in the token")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Server.AdminSecret == "" {
		return fmt.Errorf("server.admin_jwt_secret is not set")
	}

	ttl := parseDuration(cfg.Server.AdminTokenTTL, api.DefaultTokenExpiration)
	token, err := api.NewTokenAuth(cfg.Server.AdminSecret, ttl).GenerateToken(tokenUsername)
	if err != nil {
		return err
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(ttl).UTC().Format(time.RFC3339))
	return nil
}
