package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/next-assistant/internal/service/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <tenant-id>",
		Short: "Mint a bearer token scoped to one tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = time.Duration(cfg.Auth.TokenTTL) * time.Hour
			}

			issuer, err := auth.NewService(cfg.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.tokenTTL hours)")
	return cmd
}
