// Package postgres implements the persistence gateway on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
)

// schema is applied on connect; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		ticker                      TEXT PRIMARY KEY,
		name                        TEXT NOT NULL,
		exchange                    TEXT NOT NULL DEFAULT '',
		country_code                TEXT NOT NULL DEFAULT '',
		btc_holdings                DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (btc_holdings >= 0),
		shares_outstanding_millions DOUBLE PRECISION CHECK (shares_outstanding_millions > 0),
		last_holdings_update        TIMESTAMPTZ,
		created_at                  TIMESTAMPTZ NOT NULL,
		updated_at                  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bitcoin_prices (
		id       UUID PRIMARY KEY,
		price    DOUBLE PRECISION NOT NULL CHECK (price > 0),
		currency TEXT NOT NULL,
		ts       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stock_prices (
		id       UUID PRIMARY KEY,
		ticker   TEXT NOT NULL,
		price    DOUBLE PRECISION NOT NULL CHECK (price > 0),
		currency TEXT NOT NULL,
		ts       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bitcoin_prices_ts_idx ON bitcoin_prices (ts DESC)`,
	`CREATE INDEX IF NOT EXISTS stock_prices_ticker_ts_idx ON stock_prices (ticker, ts DESC)`,
}

// Manager implements interfaces.StorageManager on a pgx pool.
type Manager struct {
	pool   *pgxpool.Pool
	logger *common.Logger

	companyStore *CompanyStore
	priceStore   *PriceStore
}

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg common.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewManager connects to Postgres and applies the schema.
func NewManager(ctx context.Context, logger *common.Logger, cfg common.PostgresConfig) (*Manager, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	m, err := newManagerWithPool(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("Postgres storage manager initialized")

	return m, nil
}

func newManagerWithPool(ctx context.Context, pool *pgxpool.Pool, logger *common.Logger) (*Manager, error) {
	if err := Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return &Manager{
		pool:         pool,
		logger:       logger,
		companyStore: NewCompanyStore(pool, logger),
		priceStore:   NewPriceStore(pool, logger),
	}, nil
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *Manager) CompanyStore() interfaces.CompanyStore {
	return m.companyStore
}

func (m *Manager) PriceStore() interfaces.PriceStore {
	return m.priceStore
}

func (m *Manager) Backend() string {
	return common.BackendPostgres
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	m.pool.Close()
	return nil
}

var _ interfaces.StorageManager = (*Manager)(nil)
