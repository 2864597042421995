package interfaces

import (
	"context"

	"github.com/bobmcallan/treasury/internal/models"
)

// BitcoinPriceService fetches and records the Bitcoin spot price
type BitcoinPriceService interface {
	// FetchCurrentPrice returns the upstream price, or the last stored price
	// when the upstream fails.
	FetchCurrentPrice(ctx context.Context) (float64, error)
	// UpdatePrice fetches and appends a new point stamped with the current time.
	UpdatePrice(ctx context.Context) (*models.BitcoinPricePoint, error)
	LatestPrice(ctx context.Context) (*models.BitcoinPricePoint, error)
	PriceHistory(ctx context.Context, hours int) ([]*models.BitcoinPricePoint, error)
}

// StockPriceService fetches and records per-ticker stock prices
type StockPriceService interface {
	FetchStockPrice(ctx context.Context, ticker string) (*models.StockQuote, error)
	UpdateStockPrice(ctx context.Context, ticker string) (*models.StockPricePoint, error)
	// UpdateAllStockPrices attempts every known ticker; failures are logged
	// per ticker and never abort the batch.
	UpdateAllStockPrices(ctx context.Context) *models.StockBatchResult
	LatestPrice(ctx context.Context, ticker string) (*models.StockPricePoint, error)
	PriceHistory(ctx context.Context, ticker string, hours int) ([]*models.StockPricePoint, error)
}

// CompanyService maintains the company table
type CompanyService interface {
	RefreshHoldings(ctx context.Context) (*models.HoldingsRefreshResult, error)
	SeedIfEmpty(ctx context.Context) (int, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	GetCompany(ctx context.Context, ticker string) (*models.Company, error)
}

// TreasuryService assembles treasury views from stored data
type TreasuryService interface {
	Views(ctx context.Context) ([]*models.TreasuryView, error)
	View(ctx context.Context, ticker string) (*models.TreasuryView, error)
}

// MarketClock reports whether the reference exchange is open
type MarketClock interface {
	IsMarketOpen() bool
}
