package models

import (
	"time"

	"github.com/google/uuid"
)

// Quote sources, in tier order.
const (
	QuoteSourceChart     = "chart"
	QuoteSourceQuotePage = "quote_page"
	QuoteSourceLastKnown = "last_known"
)

// DefaultCurrency is the currency every price series is recorded in.
const DefaultCurrency = "USD"

// BitcoinPricePoint is an immutable observation of the Bitcoin spot price.
type BitcoinPricePoint struct {
	ID        string    `json:"id"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

// StockPricePoint is an immutable observation of a ticker's price.
type StockPricePoint struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBitcoinPricePoint creates a point with a fresh ID.
func NewBitcoinPricePoint(price float64, currency string, ts time.Time) *BitcoinPricePoint {
	return &BitcoinPricePoint{
		ID:        uuid.NewString(),
		Price:     price,
		Currency:  currency,
		Timestamp: ts.UTC(),
	}
}

// NewStockPricePoint creates a point with a fresh ID.
func NewStockPricePoint(ticker string, price float64, currency string, ts time.Time) *StockPricePoint {
	return &StockPricePoint{
		ID:        uuid.NewString(),
		Ticker:    ticker,
		Price:     price,
		Currency:  currency,
		Timestamp: ts.UTC(),
	}
}

// StockQuote is the result of one tier of the stock price chain.
// SharesOutstanding is the raw share count as reported upstream; it is only
// set by the chart and quote page tiers.
type StockQuote struct {
	Ticker            string    `json:"ticker"`
	Price             float64   `json:"price"`
	Currency          string    `json:"currency"`
	SharesOutstanding *float64  `json:"shares_outstanding,omitempty"`
	Source            string    `json:"source"`
	Timestamp         time.Time `json:"timestamp"`
}

// SharesOutstandingMillions converts the raw share count to millions.
func (q *StockQuote) SharesOutstandingMillions() *float64 {
	if q == nil || q.SharesOutstanding == nil || *q.SharesOutstanding <= 0 {
		return nil
	}
	v := *q.SharesOutstanding / 1_000_000
	return &v
}
