package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/pmobuilder/internal/config"
)

// Open creates the backend selected by cfg. The returned close function
// releases any connections and is never nil.
func Open(ctx context.Context, cfg config.StoreConfig) (PanelStore, func(), error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(), func() {}, nil

	case "", "file":
		s, err := NewFile(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("panel store opened", "backend", "file", "dir", cfg.Dir)
		return s, func() {}, nil

	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse database URL: %w", err)
		}
		if cfg.MaxConns > 0 {
			poolConfig.MaxConns = int32(cfg.MaxConns)
		}
		if cfg.MinConns > 0 {
			poolConfig.MinConns = int32(cfg.MinConns)
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}

		s := NewPostgres(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("panel store opened", "backend", "postgres", "max_conns", poolConfig.MaxConns)
		return s, pool.Close, nil

	case "redis":
		client := NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		slog.Info("panel store opened", "backend", "redis", "addr", cfg.RedisAddr)
		return NewRedis(NewRedisKV(client), cfg.KeyPrefix), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
