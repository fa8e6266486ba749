package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nft-storefront/internal/storage/migrations"
	pgstore "nft-storefront/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres and ClickHouse schema migrations",
	Args:  cobra.NoArgs,
	RunE:  migrate,
}

func init() {
	migrateCmd.Flags().String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	migrateCmd.Flags().String("clickhouse-dsn", "", "ClickHouse connection string (overrides storage.clickhouse_dsn)")
}

func migrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pgDSN := cfg.Storage.PostgresDSN
	if v, _ := cmd.Flags().GetString("postgres-dsn"); v != "" {
		pgDSN = v
	}
	chDSN := cfg.Storage.ClickhouseDSN
	if v, _ := cmd.Flags().GetString("clickhouse-dsn"); v != "" {
		chDSN = v
	}
	if pgDSN == "" && chDSN == "" {
		return errors.New("no database configured: set storage.postgres_dsn or storage.clickhouse_dsn")
	}

	ctx := cmd.Context()

	if pgDSN != "" {
		pool, err := pgstore.NewPool(ctx, pgDSN, 1)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		applied, err := migrations.RunPostgresMigrations(ctx, pool, logger)
		if err != nil {
			return err
		}
		logger.Info("postgres schema up to date", zap.Int("applied", len(applied)))
	}

	if chDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, chDSN, logger)
		if err != nil {
			return err
		}
		if err := conn.Close(); err != nil {
			logger.Warn("close clickhouse", zap.Error(err))
		}
		logger.Info("clickhouse schema up to date")
	}

	return nil
}
