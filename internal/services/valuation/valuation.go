// Package valuation derives treasury metrics from a company, its latest
// stock price and the latest Bitcoin price.
package valuation

import (
	"math"

	"github.com/bobmcallan/treasury/internal/models"
)

const sharesPerMillion = 1_000_000

// Compute returns the derived metrics for c.
//
// btcPrice is required; a missing or non-positive value fails with
// models.ErrNoBitcoinPrice. When the stock price or shares outstanding is
// missing or non-positive, every metric is left nil. Compute is pure.
func Compute(c *models.Company, stockPrice *float64, btcPrice *float64) (models.TreasuryMetrics, error) {
	if btcPrice == nil || !positive(*btcPrice) {
		return models.TreasuryMetrics{}, models.ErrNoBitcoinPrice
	}
	if c == nil || stockPrice == nil || c.SharesOutstandingMillions == nil {
		return models.TreasuryMetrics{}, nil
	}
	price := *stockPrice
	sharesM := *c.SharesOutstandingMillions
	if !positive(price) || !positive(sharesM) || !finite(c.BTCHoldings) {
		return models.TreasuryMetrics{}, nil
	}

	shares := sharesM * sharesPerMillion
	marketCap := price * shares
	btcValue := c.BTCHoldings * *btcPrice

	navMultiple := 0.0
	if btcValue != 0 {
		navMultiple = marketCap / btcValue
	}
	holdingsPct := 0.0
	if marketCap != 0 {
		holdingsPct = btcValue / marketCap * 100
	}
	btcPerShare := c.BTCHoldings / shares

	return models.TreasuryMetrics{
		MarketCap:             &marketCap,
		BTCValue:              &btcValue,
		BTCNavMultiple:        &navMultiple,
		BTCPerShare:           &btcPerShare,
		BTCHoldingsPercentage: &holdingsPct,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return finite(v) && v > 0
}
