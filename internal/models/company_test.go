package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"mstr", "MSTR", false},
		{"  glxy.to ", "GLXY.TO", false},
		{"3350.T", "3350.T", false},
		{"ABCDEFGHIJ", "ABCDEFGHIJ", false},
		{"ABCDEFGHIJK", "", true},
		{"", "", true},
		{"   ", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeTicker(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidTicker) {
				t.Errorf("NormalizeTicker(%q) error = %v, want ErrInvalidTicker", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeTicker(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestCompanyPatch_ApplyOnlyNamedFields(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	c := &Company{
		Ticker:                    "MSTR",
		Name:                      "MicroStrategy",
		Exchange:                  "NASDAQ",
		CountryCode:               "US",
		BTCHoldings:               100,
		SharesOutstandingMillions: Ptr(19.5),
		CreatedAt:                 created,
		UpdatedAt:                 created,
	}

	CompanyPatch{BTCHoldings: Ptr(250.0)}.Apply(c, now)

	assert.Equal(t, "MicroStrategy", c.Name)
	assert.Equal(t, "NASDAQ", c.Exchange)
	assert.Equal(t, 250.0, c.BTCHoldings)
	require.NotNil(t, c.SharesOutstandingMillions)
	assert.Equal(t, 19.5, *c.SharesOutstandingMillions)
	assert.Equal(t, created, c.CreatedAt)
	assert.Equal(t, now, c.UpdatedAt)
}

func TestNewCompanyFromPatch_DefaultsNameToTicker(t *testing.T) {
	now := time.Now()
	c := NewCompanyFromPatch("HODL", CompanyPatch{BTCHoldings: Ptr(12.0)}, now)

	assert.Equal(t, "HODL", c.Name)
	assert.Equal(t, 12.0, c.BTCHoldings)
	assert.Nil(t, c.SharesOutstandingMillions)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, now, c.UpdatedAt)
}

func TestStockQuote_SharesOutstandingMillions(t *testing.T) {
	q := &StockQuote{SharesOutstanding: Ptr(19_500_000.0)}
	got := q.SharesOutstandingMillions()
	require.NotNil(t, got)
	assert.Equal(t, 19.5, *got)

	assert.Nil(t, (&StockQuote{}).SharesOutstandingMillions())
	assert.Nil(t, (&StockQuote{SharesOutstanding: Ptr(0.0)}).SharesOutstandingMillions())
	assert.Nil(t, (*StockQuote)(nil).SharesOutstandingMillions())
}

func TestPriceUnavailableError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&PriceUnavailableError{Source: "stock", Ticker: "MSTR", Cause: cause})

	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "MSTR")
	assert.Contains(t, err.Error(), "connection refused")

	var pue *PriceUnavailableError
	require.True(t, errors.As(err, &pue))
	assert.Equal(t, "MSTR", pue.Ticker)
}
