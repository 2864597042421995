package interfaces

import (
	"context"

	"github.com/bobmcallan/treasury/internal/models"
)

// BitcoinPriceClient fetches the Bitcoin spot price from an upstream API.
type BitcoinPriceClient interface {
	GetSpotPrice(ctx context.Context) (float64, error)
}

// StockChartClient fetches a structured quote (price and shares outstanding).
type StockChartClient interface {
	GetChartQuote(ctx context.Context, ticker string) (*models.StockQuote, error)
}

// QuotePageClient extracts a quote from a human-facing quote page.
type QuotePageClient interface {
	ScrapeQuote(ctx context.Context, ticker string) (*models.StockQuote, error)
}

// HoldingsSource lists treasury companies and their holdings.
type HoldingsSource interface {
	FetchCompanies(ctx context.Context) ([]models.ScrapedCompany, error)
}
