// Package surrealdb implements the persistence gateway on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

const (
	tableCompany      = "company"
	tableBitcoinPrice = "bitcoin_price"
	tableStockPrice   = "stock_price"
)

// schema is applied on connect. SurrealDB v3 errors on querying tables that
// do not exist, so every table is defined up front.
var schema = []string{
	"DEFINE TABLE IF NOT EXISTS company SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS bitcoin_price SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS stock_price SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS bitcoin_price_ts ON bitcoin_price FIELDS timestamp_ms",
	"DEFINE INDEX IF NOT EXISTS stock_price_ticker_ts ON stock_price FIELDS ticker, timestamp_ms",
}

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	companyStore *CompanyStore
	priceStore   *PriceStore
}

// NewManager connects to SurrealDB, selects the namespace and database and
// ensures the schema exists.
func NewManager(ctx context.Context, logger *common.Logger, config common.SurrealDBConfig) (*Manager, error) {
	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := newManagerWithDB(ctx, db, logger)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", config.Address).
		Str("namespace", config.Namespace).
		Str("database", config.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func newManagerWithDB(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	if err := defineSchema(ctx, db); err != nil {
		return nil, err
	}
	return &Manager{
		db:           db,
		logger:       logger,
		companyStore: NewCompanyStore(db, logger),
		priceStore:   NewPriceStore(db, logger),
	}, nil
}

func defineSchema(ctx context.Context, db *surrealdb.DB) error {
	for _, sql := range schema {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to apply schema %q: %w", sql, err)
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
	return common.BackendSurrealDB
}

// Close closes the database connection.
func (m *Manager) Close() error {
	return m.db.Close(context.Background())
}

// tickerToID converts a ticker like "GLXY.TO" to a safe SurrealDB record ID.
// SurrealDB record IDs cannot contain dots, so we replace them with underscores.
func tickerToID(ticker string) string {
	return strings.ReplaceAll(ticker, ".", "_")
}

var _ interfaces.StorageManager = (*Manager)(nil)
