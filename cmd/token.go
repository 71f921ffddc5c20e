package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rent-billing/internal/auth"
	"rent-billing/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed API token for local use",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		roleValue, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		role, ok := auth.NormalizeRole(roleValue)
		if !ok {
			return fmt.Errorf("invalid role %q", roleValue)
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return errors.New("AUTH_JWT_SECRET is required")
		}
		token, err := auth.IssueJWT([]byte(cfg.JWTSecret), subject, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("subject", "", "user id carried in the token")
	tokenCmd.Flags().String("role", string(auth.RoleOwner), "tenant, owner or admin")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
