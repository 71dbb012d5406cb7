package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transport-request-system/internal/routes"
	"transport-request-system/pkg/config"
	"transport-request-system/pkg/eventbus"
	applogger "transport-request-system/pkg/logger"
	"transport-request-system/pkg/service"
	appwebsocket "transport-request-system/pkg/websocket"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			logger, err := applogger.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			repo, closeRepo, err := openRepository(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeRepo()

			cache, closeCache, err := openCache(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeCache()

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			bus := eventbus.New(logger)
			hub := appwebsocket.NewHub(logger)
			go hub.Run(ctx)

			e := routes.NewServer(cfg, logger)
			routes.InitRouter(e, cfg, routes.Dependencies{
				Repo:     repo,
				Cache:    cache,
				Bus:      bus,
				JWT:      service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL),
				Registry: registry,
				Hub:      hub,
			}, newLoggers(logger))

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
				serverErr <- e.Start(":" + cfg.Server.Port)
			}()

			select {
			case err := <-serverErr:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				logger.Info("Получен сигнал остановки, завершаем работу")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				logger.Error("Ошибка при остановке сервера", zap.Error(err))
			}
			bus.Wait()
			logger.Info("Сервер остановлен")
			return nil
		},
	}
}
