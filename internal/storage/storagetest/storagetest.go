// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// RunCompanyStoreTests exercises a CompanyStore. newStore must return an
// empty store for each call.
func RunCompanyStoreTests(t *testing.T, newStore func(t *testing.T) interfaces.CompanyStore) {
	t.Run("GetUnknownReturnsNil", func(t *testing.T) {
		s := newStore(t)
		c, err := s.GetCompany(context.Background(), "NOPE")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("UpsertInsertsThenPatches", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		holdingsAt := time.Now().UTC().Truncate(time.Second)

		inserted, err := s.UpsertCompany(ctx, "MSTR", models.CompanyPatch{
			Name:                      models.Ptr("MicroStrategy"),
			Exchange:                  models.Ptr("NASDAQ"),
			CountryCode:               models.Ptr("US"),
			BTCHoldings:               models.Ptr(444262.0),
			SharesOutstandingMillions: models.Ptr(19.5),
			LastHoldingsUpdate:        &holdingsAt,
		})
		require.NoError(t, err)
		require.NotNil(t, inserted)
		assert.Equal(t, "MSTR", inserted.Ticker)
		assert.Equal(t, "MicroStrategy", inserted.Name)
		assert.False(t, inserted.CreatedAt.IsZero())

		updated, err := s.UpsertCompany(ctx, "MSTR", models.CompanyPatch{
			BTCHoldings: models.Ptr(500000.0),
		})
		require.NoError(t, err)
		assert.Equal(t, "MicroStrategy", updated.Name, "unnamed fields must be preserved")
		assert.Equal(t, "NASDAQ", updated.Exchange)
		assert.Equal(t, 500000.0, updated.BTCHoldings)
		require.NotNil(t, updated.SharesOutstandingMillions)
		assert.Equal(t, 19.5, *updated.SharesOutstandingMillions)
		assert.False(t, updated.UpdatedAt.Before(inserted.UpdatedAt))

		got, err := s.GetCompany(ctx, "MSTR")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 500000.0, got.BTCHoldings)
		require.NotNil(t, got.LastHoldingsUpdate)
		assert.True(t, holdingsAt.Equal(*got.LastHoldingsUpdate))

		n, err := s.CountCompanies(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "at most one row per ticker")
	})

	t.Run("InsertWithoutNameUsesTicker", func(t *testing.T) {
		s := newStore(t)
		c, err := s.UpsertCompany(context.Background(), "GLXY.TO", models.CompanyPatch{BTCHoldings: models.Ptr(10.0)})
		require.NoError(t, err)
		assert.Equal(t, "GLXY.TO", c.Name)
		assert.Nil(t, c.SharesOutstandingMillions)

		got, err := s.GetCompany(context.Background(), "GLXY.TO")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "GLXY.TO", got.Ticker)
	})

	t.Run("ListSortedByHoldings", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for ticker, holdings := range map[string]float64{"TSLA": 9720, "MSTR": 444262, "SMLR": 1058} {
			_, err := s.UpsertCompany(ctx, ticker, models.CompanyPatch{BTCHoldings: models.Ptr(holdings)})
			require.NoError(t, err)
		}

		list, err := s.ListCompanies(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "MSTR", list[0].Ticker)
		assert.Equal(t, "TSLA", list[1].Ticker)
		assert.Equal(t, "SMLR", list[2].Ticker)
	})
}

// RunPriceStoreTests exercises a PriceStore. newStore must return an empty
// store for each call.
func RunPriceStoreTests(t *testing.T, newStore func(t *testing.T) interfaces.PriceStore) {
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("EmptySeries", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		btc, err := s.LatestBitcoinPrice(ctx)
		require.NoError(t, err)
		assert.Nil(t, btc)

		stock, err := s.LatestStockPrice(ctx, "MSTR")
		require.NoError(t, err)
		assert.Nil(t, stock)

		hist, err := s.BitcoinPriceHistory(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, hist)
	})

	t.Run("BitcoinLatestAndHistory", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		old := models.NewBitcoinPricePoint(60000, "USD", now.Add(-3*time.Hour))
		boundary := models.NewBitcoinPricePoint(61000, "USD", now.Add(-2*time.Hour))
		recent := models.NewBitcoinPricePoint(62000, "USD", now.Add(-10*time.Minute))
		for _, p := range []*models.BitcoinPricePoint{recent, old, boundary} {
			require.NoError(t, s.InsertBitcoinPrice(ctx, p))
		}

		latest, err := s.LatestBitcoinPrice(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 62000.0, latest.Price)
		assert.Equal(t, "USD", latest.Currency)
		assert.True(t, recent.Timestamp.Equal(latest.Timestamp))

		hist, err := s.BitcoinPriceHistory(ctx, now.Add(-2*time.Hour))
		require.NoError(t, err)
		require.Len(t, hist, 2, "points at the boundary are included")
		assert.Equal(t, 62000.0, hist[0].Price, "history is newest first")
		assert.Equal(t, 61000.0, hist[1].Price)
	})

	t.Run("WrittenPointIsLatestImmediately", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.InsertBitcoinPrice(ctx, models.NewBitcoinPricePoint(50000, "USD", now.Add(-time.Minute))))
		require.NoError(t, s.InsertBitcoinPrice(ctx, models.NewBitcoinPricePoint(50500, "USD", now)))

		latest, err := s.LatestBitcoinPrice(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 50500.0, latest.Price)
	})

	t.Run("StockSeriesArePerTicker", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.InsertStockPrice(ctx, models.NewStockPricePoint("MSTR", 350, "USD", now.Add(-2*time.Hour))))
		require.NoError(t, s.InsertStockPrice(ctx, models.NewStockPricePoint("MSTR", 360, "USD", now.Add(-time.Hour))))
		require.NoError(t, s.InsertStockPrice(ctx, models.NewStockPricePoint("TSLA", 250, "USD", now)))

		latest, err := s.LatestStockPrice(ctx, "MSTR")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 360.0, latest.Price)
		assert.Equal(t, "MSTR", latest.Ticker)

		hist, err := s.StockPriceHistory(ctx, "MSTR", now.Add(-90*time.Minute))
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, 360.0, hist[0].Price)

		hist, err = s.StockPriceHistory(ctx, "MSTR", now.Add(-24*time.Hour))
		require.NoError(t, err)
		require.Len(t, hist, 2)
		assert.True(t, hist[0].Timestamp.After(hist[1].Timestamp))

		none, err := s.LatestStockPrice(ctx, "COIN")
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}
