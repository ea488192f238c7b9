package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/boxgate/config"
	"github.com/sagarc03/boxgate/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or check the database tables",
	Long: `Create the redirect and rate bucket tables if they do not exist, then
check that their columns match what boxgate expects.

With --check no tables are created; the command only reports whether the
existing schema is usable.`,
	RunE: runMigrate,
}

var migrateCheckOnly bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateCheckOnly, "check", false, "only validate the existing schema")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := database.Connect(ctx, cfg.Database.Config)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if !migrateCheckOnly {
		if err = db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	if err = db.Validate(ctx); err != nil {
		return fmt.Errorf("validate database schema: %w", err)
	}

	slog.Info("database schema ok",
		"type", cfg.Database.Type,
		"redirects", cfg.Database.Tables.Redirects,
		"rate_buckets", cfg.Database.Tables.RateBuckets,
	)
	return nil
}
