package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/treasury/internal/models"
	"github.com/bobmcallan/treasury/internal/services/market"
)

func ptr(v float64) *float64 { return &v }

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   float64
		currency string
		want     string
	}{
		{67234.5, "USD", "$67,234.50"},
		{67234.5, "", "$67,234.50"},
		{412.1, "usd", "$412.10"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.amount, tt.currency); got != tt.want {
			t.Errorf("formatMoney(%v, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestFormatCompactUSD(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "N/A"},
		{ptr(2.5e12), "$2.50T"},
		{ptr(74_223_000_000), "$74.22B"},
		{ptr(45_600_000), "$45.60M"},
		{ptr(1234.5), "$1,234.50"},
	}
	for _, tt := range tests {
		if got := formatCompactUSD(tt.in); got != tt.want {
			t.Errorf("formatCompactUSD() = %q, want %q", got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Strategy", truncate("Strategy", 10))
	assert.Equal(t, "Marathon …", truncate("Marathon Digital Holdings", 10))
}

func TestWriteCompanyTable(t *testing.T) {
	views := []*models.TreasuryView{
		{
			Company:       models.Company{Ticker: "MSTR", Name: "Strategy", BTCHoldings: 640031},
			StockPrice:    ptr(300),
			StockCurrency: "USD",
			TreasuryMetrics: models.TreasuryMetrics{
				MarketCap:             ptr(75e9),
				BTCValue:              ptr(64e9),
				BTCNavMultiple:        ptr(1.17),
				BTCHoldingsPercentage: ptr(85.33),
			},
		},
		{
			Company:    models.Company{Ticker: "XXI", Name: "Twenty One", BTCHoldings: 43514},
			StockPrice: ptr(12),
			PriceStale: true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCompanyTable(&buf, views))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Market Cap")
	assert.Contains(t, lines[1], "MSTR")
	assert.Contains(t, lines[1], "$300.00")
	assert.Contains(t, lines[1], "$75.00B")
	assert.Contains(t, lines[1], "1.17x")
	assert.Contains(t, lines[1], "85.33%")
	assert.Contains(t, lines[2], "$12.00*")
	assert.Contains(t, lines[2], "N/A")
}

func TestWriteMarketStatus(t *testing.T) {
	next := time.Date(2026, 10, 19, 13, 30, 0, 0, time.UTC)

	var closed bytes.Buffer
	writeMarketStatus(&closed, market.Status{Timezone: "America/New_York", LocalTime: "2026-10-18 10:00:00", NextOpen: next})
	assert.Contains(t, closed.String(), "is closed")
	assert.Contains(t, closed.String(), "Next open:  2026-10-19T13:30:00Z")

	var open bytes.Buffer
	writeMarketStatus(&open, market.Status{IsOpen: true, Timezone: "America/New_York", LocalTime: "2026-10-19 10:00:00"})
	assert.Contains(t, open.String(), "is open")
	assert.NotContains(t, open.String(), "Next open")
}
