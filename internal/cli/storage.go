package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cyber-sensei-progress/internal/app"
	"cyber-sensei-progress/internal/config"
	"cyber-sensei-progress/internal/infra/memory"
	pgstore "cyber-sensei-progress/internal/infra/postgres"
	redisstore "cyber-sensei-progress/internal/infra/redis"
	"cyber-sensei-progress/internal/infra/sqlite"
)

// openKVStore connects the backend selected by storage.driver. The returned
// close func releases its connections.
func openKVStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (app.KVStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		// Progress has no natural expiry; ttl 0 keeps keys forever.
		ttl := config.TTLDuration(cfg.Redis.TTL, 0)
		logger.Info("using redis storage", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", ttl))
		return redisstore.NewKVStore(client, ttl), func() { _ = client.Close() }, nil
	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("using postgres storage")
		return pgstore.NewKVStore(pool), pool.Close, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite storage", zap.String("path", cfg.SQLite.Path))
		return store, func() { _ = store.Close() }, nil
	default:
		logger.Warn("using in-memory storage; progress is lost on restart")
		return memory.NewKVStore(), func() {}, nil
	}
}

func storageKeys(cfg config.Config) app.StorageKeys {
	return app.StorageKeys{
		ProgressPrefix: cfg.Storage.KeyPrefix,
		DailyPrefix:    cfg.Storage.DailyKeyPrefix,
	}
}

const shutdownTimeout = 5 * time.Second
