package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/voc-service/internal/config"
	"github.com/spec-kit/voc-service/internal/observability"
	"github.com/spec-kit/voc-service/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back or inspect the embedded goose migrations.`,
	}

	cmd.AddCommand(
		migrateSubcommand(persistence.MigrateUp, "Run all pending migrations"),
		migrateSubcommand(persistence.MigrateDown, "Roll back the latest migration"),
		migrateSubcommand(persistence.MigrateStatus, "Show migration status"),
	)
	return cmd
}

func migrateSubcommand(command persistence.MigrationCommand, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(command),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, pg *persistence.Postgres, logger *zap.Logger) error {
				return persistence.Migrate(ctx, pg.Pool(), command, logger)
			})
		},
	}
}

// withDatabase loads config, opens Postgres and runs fn for one-shot commands.
func withDatabase(parent context.Context, fn func(ctx context.Context, pg *persistence.Postgres, logger *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := contextOrBackground(parent)
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	return fn(ctx, pg, logger)
}
