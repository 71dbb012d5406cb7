package main

import (
	"github.com/spf13/cobra"

	"transport-request-system/internal/routes"
	"transport-request-system/pkg/config"
	applogger "transport-request-system/pkg/logger"
	"transport-request-system/seeders"
)

func newSeedCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Заполнить хранилище демонстрационными заявками",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			logger, err := applogger.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			repo, closeRepo, err := openRepository(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeRepo()

			svc := routes.BuildServices(cfg, routes.Dependencies{Repo: repo}, newLoggers(logger))
			return seeders.SeedApplications(cmd.Context(), svc.Applications, count, logger)
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "Сколько заявок создать")
	return cmd
}
