package main

import (
	"os"

	"finance_api/internal/auth"
	"finance_api/internal/lib/hasher"
	"finance_api/internal/lib/jwt"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/storage/postgres"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func NewPurgeTokensCmd() *cobra.Command {
	var retention string

	cmd := &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete refresh tokens that expired before the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			keep := cfg.Housekeeping.Retention
			if retention != "" {
				keep, err = parseRetention(retention)
				if err != nil {
					return err
				}
			}

			log := sl.New(cfg.Env, os.Stderr)

			storage, err := postgres.New(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer storage.Close()

			codec, err := jwt.New(cfg.Tokens.Secret, cfg.Tokens.Issuer, cfg.Tokens.AccessTokenTTL, cfg.Tokens.RefreshTokenTTL)
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}

			authService, err := auth.New(log, storage, hasher.New(hasher.DefaultCost), codec)
			if err != nil {
				return err
			}

			n, err := authService.PurgeExpired(cmd.Context(), keep)
			if err != nil {
				return err
			}

			cmd.Printf("deleted %d expired refresh tokens\n", n)

			return nil
		},
	}

	cmd.Flags().StringVar(&retention, "retention", "", "keep tokens that expired within this window, e.g. 72h")

	return cmd
}
