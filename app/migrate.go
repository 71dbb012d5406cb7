package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transport-request-system/pkg/config"
	"transport-request-system/pkg/database/postgresql"
	applogger "transport-request-system/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Применить миграции схемы PostgreSQL",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			if cfg.StorageDriver != config.StorageDriverPostgres {
				return fmt.Errorf("миграции нужны только для STORAGE_DRIVER=%s", config.StorageDriverPostgres)
			}
			logger, err := applogger.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			pool, err := postgresql.ConnectDB(cmd.Context(), cfg.Postgres.DSN, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgresql.Migrate(cmd.Context(), pool, args[0]); err != nil {
				return err
			}
			logger.Info("Миграции выполнены", zap.String("command", args[0]))
			return nil
		},
	}
}
