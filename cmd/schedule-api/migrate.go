package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/pkg/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateAction("up", "Apply pending migrations", func(ctx context.Context, m *database.Migrator, _ *zap.Logger) error {
			return m.Up(ctx)
		}),
		migrateAction("down", "Roll back the latest migration", func(ctx context.Context, m *database.Migrator, _ *zap.Logger) error {
			return m.Down(ctx)
		}),
		migrateAction("version", "Print the applied migration version", func(ctx context.Context, m *database.Migrator, logr *zap.Logger) error {
			version, err := m.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Println(version)
			return nil
		}),
	)
	return cmd
}

func migrateAction(use, short string, run func(context.Context, *database.Migrator, *zap.Logger) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			migrator, err := database.NewMigrator(db.DB, cfg.Database.MigrationsDir, logr)
			if err != nil {
				return err
			}
			return run(cmd.Context(), migrator, logr)
		},
	}
}
