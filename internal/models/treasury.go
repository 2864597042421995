package models

import "time"

// TreasuryMetrics are the values derived from a company, its latest stock
// price and the latest Bitcoin price. Every field is nil when the metrics
// cannot be computed.
type TreasuryMetrics struct {
	MarketCap             *float64 `json:"market_cap,omitempty"`
	BTCValue              *float64 `json:"btc_value,omitempty"`
	BTCNavMultiple        *float64 `json:"btc_nav_multiple,omitempty"`
	BTCPerShare           *float64 `json:"btc_per_share,omitempty"`
	BTCHoldingsPercentage *float64 `json:"btc_holdings_percentage,omitempty"`
}

// Available reports whether the metrics were computed.
func (m TreasuryMetrics) Available() bool {
	return m.MarketCap != nil
}

// TreasuryView joins a company with its latest prices. It is never stored.
type TreasuryView struct {
	Company
	TreasuryMetrics

	StockPrice       *float64   `json:"stock_price,omitempty"`
	StockCurrency    string     `json:"stock_currency,omitempty"`
	PriceUpdatedAt   *time.Time `json:"price_updated_at,omitempty"`
	PriceStale       bool       `json:"price_stale"`
	BitcoinPrice     float64    `json:"bitcoin_price"`
	MetricsAvailable bool       `json:"metrics_available"`
}
