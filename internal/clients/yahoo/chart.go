package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// chartResponse is the subset of the v8 chart payload the quote needs.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	PreviousClose      *float64 `json:"previousClose"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
	SharesOutstanding  *float64 `json:"sharesOutstanding"`
}

// price returns regularMarketPrice, falling back to the previous close.
func (m chartMeta) price() (float64, bool) {
	for _, p := range []*float64{m.RegularMarketPrice, m.PreviousClose, m.ChartPreviousClose} {
		if p != nil && *p > 0 {
			return *p, true
		}
	}
	return 0, false
}

// GetChartQuote fetches a ticker's price and shares outstanding from the chart API
func (c *Client) GetChartQuote(ctx context.Context, ticker string) (*models.StockQuote, error) {
	endpoint := "/chart/" + url.PathEscape(ticker)

	start := time.Now()
	body, err := c.get(ctx, c.baseURL+endpoint, endpoint, maxPageBytes)
	if err != nil {
		return nil, err
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode chart response: %w", err)
	}
	if e := payload.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart error for %s: %s %s", ticker, e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data found for ticker %s", ticker)
	}

	meta := payload.Chart.Result[0].Meta
	price, ok := meta.price()
	if !ok {
		return nil, fmt.Errorf("no price data found for ticker %s", ticker)
	}

	quote := &models.StockQuote{
		Ticker:    ticker,
		Price:     price,
		Currency:  strings.ToUpper(meta.Currency),
		Source:    models.QuoteSourceChart,
		Timestamp: c.now().UTC(),
	}
	if quote.Currency == "" {
		quote.Currency = models.DefaultCurrency
	}
	if meta.SharesOutstanding != nil && *meta.SharesOutstanding > 0 {
		quote.SharesOutstanding = meta.SharesOutstanding
	}

	c.logger.Debug().
		Str("ticker", ticker).
		Float64("price", price).
		Dur("elapsed", time.Since(start)).
		Msg("Yahoo chart quote")

	return quote, nil
}

var _ interfaces.StockChartClient = (*Client)(nil)
