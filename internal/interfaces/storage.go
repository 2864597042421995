// Package interfaces defines service contracts for the treasury service
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/treasury/internal/models"
)

// StorageManager coordinates the persistence backend
type StorageManager interface {
	CompanyStore() CompanyStore
	PriceStore() PriceStore

	// Backend returns the backend name (memory, surrealdb, postgres).
	Backend() string

	// Lifecycle
	Close() error
}

// CompanyStore holds the mutable company table, one row per ticker.
// Reads of an unknown ticker return (nil, nil).
type CompanyStore interface {
	// UpsertCompany inserts the ticker when absent, otherwise patches the
	// named fields and bumps updated_at. Returns the stored row.
	UpsertCompany(ctx context.Context, ticker string, patch models.CompanyPatch) (*models.Company, error)
	GetCompany(ctx context.Context, ticker string) (*models.Company, error)
	// ListCompanies returns every company ordered by BTC holdings, largest first.
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	CountCompanies(ctx context.Context) (int, error)
}

// PriceStore holds the append-only price series. Latest* return (nil, nil)
// when the series is empty; histories include points at or after since and
// are ordered newest first.
type PriceStore interface {
	InsertBitcoinPrice(ctx context.Context, point *models.BitcoinPricePoint) error
	LatestBitcoinPrice(ctx context.Context) (*models.BitcoinPricePoint, error)
	BitcoinPriceHistory(ctx context.Context, since time.Time) ([]*models.BitcoinPricePoint, error)

	InsertStockPrice(ctx context.Context, point *models.StockPricePoint) error
	LatestStockPrice(ctx context.Context, ticker string) (*models.StockPricePoint, error)
	StockPriceHistory(ctx context.Context, ticker string, since time.Time) ([]*models.StockPricePoint, error)
}
