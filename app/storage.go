package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"transport-request-system/internal/repositories"
	"transport-request-system/internal/routes"
	"transport-request-system/pkg/config"
	"transport-request-system/pkg/database/postgresql"
)

// openRepository выбирает хранилище заявок по STORAGE_DRIVER. close освобождает ресурсы.
func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.ApplicationRepositoryInterface, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Warn("Хранилище в памяти: данные пропадут после остановки")
		return repositories.NewMemoryApplicationRepository(), func() {}, nil
	case config.StorageDriverPostgres:
		pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewApplicationRepository(pool, repositories.NewTxManager(pool))
		return repo, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("неизвестный STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

// openCache: без REDIS_ADDRESS сводка кешируется в памяти процесса.
func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.CacheRepositoryInterface, func(), error) {
	if cfg.Redis.Address == "" {
		return repositories.NewMemoryCacheRepository(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("не удалось подключиться к Redis %s: %w", cfg.Redis.Address, err)
	}
	logger.Info("✅ Подключено к Redis", zap.String("address", cfg.Redis.Address))
	return repositories.NewRedisCacheRepository(client), func() { client.Close() }, nil
}

func newLoggers(logger *zap.Logger) *routes.Loggers {
	return &routes.Loggers{
		Main:        logger,
		Application: logger.Named("application"),
		History:     logger.Named("history"),
	}
}
