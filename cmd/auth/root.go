package main

import (
	"finance_api/internal/config"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

var configFile string

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "auth",
		Short:        "Finance API authentication service",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (defaults to CONFIG_PATH or "+config.DefaultPath+")")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPurgeTokensCmd())

	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	return cfg, nil
}
