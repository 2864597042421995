package surrealdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
	"github.com/bobmcallan/treasury/internal/storage/storagetest"
)

func TestCompanyStore(t *testing.T) {
	storagetest.RunCompanyStoreTests(t, func(t *testing.T) interfaces.CompanyStore {
		return NewCompanyStore(testDB(t), testLogger())
	})
}

func TestPriceStore(t *testing.T) {
	storagetest.RunPriceStoreTests(t, func(t *testing.T) interfaces.PriceStore {
		return NewPriceStore(testDB(t), testLogger())
	})
}

func TestCompanyStore_DottedTicker(t *testing.T) {
	store := NewCompanyStore(testDB(t), testLogger())
	ctx := context.Background()

	_, err := store.UpsertCompany(ctx, "3350.T", models.CompanyPatch{Name: models.Ptr("Metaplanet"), BTCHoldings: models.Ptr(1761.0)})
	require.NoError(t, err)

	got, err := store.GetCompany(ctx, "3350.T")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "3350.T", got.Ticker, "ticker is stored verbatim even though the record ID is sanitised")
	assert.Equal(t, "Metaplanet", got.Name)
}

func TestTickerToID(t *testing.T) {
	tests := map[string]string{
		"MSTR":    "MSTR",
		"GLXY.TO": "GLXY_TO",
		"LQWD.V":  "LQWD_V",
	}
	for in, want := range tests {
		if got := tickerToID(in); got != want {
			t.Errorf("tickerToID(%q) = %q, want %q", in, got, want)
		}
	}
}
