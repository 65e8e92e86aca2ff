package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"writ_docket_go/config"
	"writ_docket_go/services"
)

func tokenCmd() *cobra.Command {
	var (
		caller services.Caller
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			token, err := services.IssueAccessToken(cfg.JWTSecret, caller, ttl)
			if err != nil {
				return err
			}
			log.Debug().Str("email", caller.Email).Str("role", caller.Role).Dur("ttl", ttl).Msg("Issued access token")
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&caller.Email, "email", "", "user email (required)")
	cmd.Flags().StringVar(&caller.Role, "role", "", "role, ADMIN for full access")
	cmd.Flags().StringVar(&caller.Branch, "branch", "", "branch of the user")
	cmd.Flags().StringVar(&caller.UserID, "subject", "", "user id recorded in audit entries")
	cmd.Flags().DurationVar(&ttl, "ttl", services.DefaultTokenTTL, "token lifetime, 0 for no expiry")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
