// Package bitcoin fetches and records the Bitcoin spot price.
package bitcoin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// DefaultHistoryHours is used when a non-positive window is requested.
const DefaultHistoryHours = 24

// Service implements interfaces.BitcoinPriceService with the upstream client
// as primary source and the last stored price as fallback.
type Service struct {
	client   interfaces.BitcoinPriceClient
	prices   interfaces.PriceStore
	currency string
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
}

// NewService creates a new Bitcoin price service. Prices are recorded in
// currency (upper-cased; empty means USD).
func NewService(client interfaces.BitcoinPriceClient, prices interfaces.PriceStore, currency string, logger *common.Logger) *Service {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &Service{
		client:   client,
		prices:   prices,
		currency: currency,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchCurrentPrice returns the upstream spot price. When the upstream
// fails it returns the most recent stored price and logs the degradation;
// with nothing stored it fails with a *models.PriceUnavailableError.
func (s *Service) FetchCurrentPrice(ctx context.Context) (float64, error) {
	start := time.Now()
	price, err := s.client.GetSpotPrice(ctx)
	if err == nil {
		s.logger.Info().
			Float64("price", price).
			Str("currency", s.currency).
			Dur("elapsed", time.Since(start)).
			Msg("Fetched Bitcoin price")
		return price, nil
	}

	s.logger.Error().Err(err).Msg("Bitcoin price fetch failed, trying last known price")

	last, dbErr := s.prices.LatestBitcoinPrice(ctx)
	if dbErr != nil {
		s.logger.Error().Err(dbErr).Msg("Failed to read last known Bitcoin price")
	}
	if last != nil {
		s.logger.Warn().
			Str("source", models.QuoteSourceLastKnown).
			Float64("price", last.Price).
			Time("recorded_at", last.Timestamp).
			Msg("Using last known Bitcoin price")
		return last.Price, nil
	}

	return 0, &models.PriceUnavailableError{Source: "bitcoin", Cause: err}
}

// UpdatePrice fetches the current price and appends it as a new point
// stamped with the current time.
func (s *Service) UpdatePrice(ctx context.Context) (*models.BitcoinPricePoint, error) {
	price, err := s.FetchCurrentPrice(ctx)
	if err != nil {
		return nil, err
	}

	point := models.NewBitcoinPricePoint(price, s.currency, s.now())
	if err := s.prices.InsertBitcoinPrice(ctx, point); err != nil {
		return nil, fmt.Errorf("failed to store bitcoin price: %w", err)
	}

	s.logger.Info().Float64("price", price).Msg("Recorded Bitcoin price")
	return point, nil
}

// LatestPrice returns the most recent stored point, or nil when none exists.
func (s *Service) LatestPrice(ctx context.Context) (*models.BitcoinPricePoint, error) {
	return s.prices.LatestBitcoinPrice(ctx)
}

// PriceHistory returns points recorded in the last hours hours, newest first.
func (s *Service) PriceHistory(ctx context.Context, hours int) ([]*models.BitcoinPricePoint, error) {
	if hours <= 0 {
		hours = DefaultHistoryHours
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	return s.prices.BitcoinPriceHistory(ctx, since)
}

var _ interfaces.BitcoinPriceService = (*Service)(nil)
