package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetwise/internal/storage"
	"budgetwise/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the configured backend",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	var version uint
	switch cfg.DataBackend {
	case "sqlite":
		version, err = storage.RunMigrations(cfg.SQLiteDBPath)
	case "postgres":
		version, err = postgres.RunMigrations(cfg.DatabaseURL)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Backend %q has no schema, nothing to migrate\n", cfg.DataBackend)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", cfg.DataBackend, version)
	return nil
}
