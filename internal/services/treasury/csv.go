package treasury

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/bobmcallan/treasury/internal/models"
)

// NotAvailable is written in place of metrics that could not be computed.
const NotAvailable = "N/A"

var csvHeader = []string{
	"Company",
	"Ticker",
	"Exchange",
	"Country",
	"BTC Holdings",
	"Stock Price",
	"Shares Outstanding (M)",
	"Market Cap",
	"BTC Value",
	"NAV Multiple",
	"BTC per Share",
	"BTC Holdings %",
	"Last Updated",
}

// WriteCSV writes views as CSV with a header row.
func WriteCSV(w io.Writer, views []*models.TreasuryView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, v := range views {
		lastUpdated := NotAvailable
		if v.PriceUpdatedAt != nil {
			lastUpdated = v.PriceUpdatedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			v.Name,
			v.Ticker,
			orNA(v.Exchange),
			orNA(v.CountryCode),
			strconv.FormatFloat(v.BTCHoldings, 'f', -1, 64),
			formatOptional(v.StockPrice, 2),
			formatOptional(v.SharesOutstandingMillions, -1),
			formatOptional(v.MarketCap, 0),
			formatOptional(v.BTCValue, 0),
			formatOptional(v.BTCNavMultiple, 2),
			formatOptional(v.BTCPerShare, 8),
			formatOptional(v.BTCHoldingsPercentage, 2),
			lastUpdated,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
