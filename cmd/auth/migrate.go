package main

import (
	"finance_api/internal/storage/postgres"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, (*postgres.Migrator).Up)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, (*postgres.Migrator).Down)
		},
	})

	return cmd
}

func runMigration(cmd *cobra.Command, step func(*postgres.Migrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := postgres.NewMigrator(cfg.Postgres.URL())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer m.Close()

	if err := step(m); err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "read version").Wrap(err)
	}

	cmd.Printf("schema version %d (dirty: %t)\n", version, dirty)

	return nil
}
