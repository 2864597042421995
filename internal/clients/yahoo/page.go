package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// Quote pages embed the quote summary as JSON inside the markup.
var (
	pagePriceRe  = regexp.MustCompile(`regularMarketPrice":\{"raw":(\d+\.?\d*)`)
	pageSharesRe = regexp.MustCompile(`sharesOutstanding":\{"raw":(\d+)`)
)

// ScrapeQuote fetches the human-facing quote page and extracts the price and
// shares outstanding from its embedded JSON.
func (c *Client) ScrapeQuote(ctx context.Context, ticker string) (*models.StockQuote, error) {
	endpoint := "/" + url.PathEscape(ticker)

	body, err := c.get(ctx, c.quotePageURL+endpoint, "quote page", maxPageBytes)
	if err != nil {
		return nil, err
	}

	quote, err := parseQuotePage(ticker, body)
	if err != nil {
		return nil, err
	}
	quote.Timestamp = c.now().UTC()

	c.logger.Debug().Str("ticker", ticker).Float64("price", quote.Price).Msg("Yahoo quote page scraped")
	return quote, nil
}

func parseQuotePage(ticker string, body []byte) (*models.StockQuote, error) {
	m := pagePriceRe.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("no price found on quote page for %s", ticker)
	}
	price, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil || price <= 0 {
		return nil, fmt.Errorf("invalid price %q on quote page for %s", m[1], ticker)
	}

	quote := &models.StockQuote{
		Ticker:   ticker,
		Price:    price,
		Currency: models.DefaultCurrency,
		Source:   models.QuoteSourceQuotePage,
	}
	if s := pageSharesRe.FindSubmatch(body); s != nil {
		if shares, err := strconv.ParseFloat(string(s[1]), 64); err == nil && shares > 0 {
			quote.SharesOutstanding = &shares
		}
	}
	return quote, nil
}

var _ interfaces.QuotePageClient = (*Client)(nil)
