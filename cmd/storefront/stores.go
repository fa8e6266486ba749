package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nft-storefront/internal/config"
	"nft-storefront/internal/storage"
	chstore "nft-storefront/internal/storage/clickhouse"
	"nft-storefront/internal/storage/memory"
	"nft-storefront/internal/storage/migrations"
	pgstore "nft-storefront/internal/storage/postgres"
	redisstore "nft-storefront/internal/storage/redis"
)

const postgresMaxConns = 10

// stores holds the storage backends selected by configuration.
type stores struct {
	orders   storage.OrderStore
	events   storage.CheckoutEventStore // nil when no audit log is configured
	sessions storage.SessionStore
}

// openStores connects the configured backends and applies migrations.
// On success the returned cleanup closes every opened connection.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	s := &stores{}

	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN, postgresMaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if _, err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.orders = pgstore.NewOrderStore(pool)
		logger.Info("order store: postgres")
	default:
		s.orders = memory.NewOrderStore()
		logger.Info("order store: memory")
	}

	switch {
	case cfg.Storage.ClickhouseDSN != "":
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() {
			if err := conn.Close(); err != nil {
				logger.Warn("close clickhouse", zap.Error(err))
			}
		})
		s.events = chstore.NewCheckoutEventStore(conn)
		logger.Info("checkout event log: clickhouse")
	case cfg.Storage.Backend == "memory":
		s.events = memory.NewCheckoutEventStore()
		logger.Info("checkout event log: memory")
	default:
		logger.Info("checkout event log: disabled")
	}

	switch cfg.Session.Backend {
	case "redis":
		rdb, err := redisstore.NewClient(ctx, cfg.Session.RedisAddr, cfg.Session.RedisDB)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("close redis", zap.Error(err))
			}
		})
		s.sessions = redisstore.NewSessionStore(rdb)
		logger.Info("session store: redis")
	default:
		s.sessions = memory.NewSessionStore()
		logger.Info("session store: memory")
	}

	return s, cleanup, nil
}
