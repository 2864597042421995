package models

import (
	"strings"
	"time"
)

// MaxTickerLength is the longest accepted ticker symbol.
const MaxTickerLength = 10

// Company is a publicly traded holder of a Bitcoin treasury.
// Ticker is the join key for every price series.
type Company struct {
	Ticker                    string     `json:"ticker"`
	Name                      string     `json:"name"`
	Exchange                  string     `json:"exchange,omitempty"`
	CountryCode               string     `json:"country_code,omitempty"`
	BTCHoldings               float64    `json:"btc_holdings"`
	SharesOutstandingMillions *float64   `json:"shares_outstanding_millions,omitempty"`
	LastHoldingsUpdate        *time.Time `json:"last_holdings_update,omitempty"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// CompanyPatch names the fields an upsert writes. Nil fields are left as-is
// on update and take their zero value on insert.
type CompanyPatch struct {
	Name                      *string
	Exchange                  *string
	CountryCode               *string
	BTCHoldings               *float64
	SharesOutstandingMillions *float64
	LastHoldingsUpdate        *time.Time
}

// Apply writes the patch onto c and bumps UpdatedAt.
func (p CompanyPatch) Apply(c *Company, now time.Time) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Exchange != nil {
		c.Exchange = *p.Exchange
	}
	if p.CountryCode != nil {
		c.CountryCode = *p.CountryCode
	}
	if p.BTCHoldings != nil {
		c.BTCHoldings = *p.BTCHoldings
	}
	if p.SharesOutstandingMillions != nil {
		v := *p.SharesOutstandingMillions
		c.SharesOutstandingMillions = &v
	}
	if p.LastHoldingsUpdate != nil {
		t := *p.LastHoldingsUpdate
		c.LastHoldingsUpdate = &t
	}
	c.UpdatedAt = now
}

// NewCompanyFromPatch builds the row inserted when a ticker is first seen.
// The name falls back to the ticker when the patch carries none.
func NewCompanyFromPatch(ticker string, p CompanyPatch, now time.Time) *Company {
	c := &Company{
		Ticker:    ticker,
		Name:      ticker,
		CreatedAt: now,
	}
	p.Apply(c, now)
	if c.Name == "" {
		c.Name = ticker
	}
	return c
}

// NormalizeTicker upper-cases and trims a ticker and validates its length.
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return "", ErrInvalidTicker
	}
	if len(t) > MaxTickerLength {
		return "", ErrInvalidTicker
	}
	return t, nil
}

// ScrapedCompany is one row returned by a holdings source.
type ScrapedCompany struct {
	Name                      string
	Ticker                    string
	BTCHoldings               float64
	Country                   string
	Exchange                  string
	SharesOutstandingMillions *float64
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
