// Package stock fetches and records per-ticker stock prices through an
// ordered chain of quote sources.
package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// DefaultHistoryHours is used when a non-positive window is requested.
const DefaultHistoryHours = 24

// errNoStoredPrice is returned by the last-known tier for a ticker with no history.
var errNoStoredPrice = errors.New("no stored price")

// tier is one quote source in the fallback chain.
type tier struct {
	source string
	fetch  func(ctx context.Context, ticker string) (*models.StockQuote, error)
}

// Service implements interfaces.StockPriceService.
type Service struct {
	tiers     []tier
	prices    interfaces.PriceStore
	companies interfaces.CompanyStore
	pacing    time.Duration
	logger    *common.Logger
	now       func() time.Time                                 // injectable clock for testing
	sleep     func(ctx context.Context, d time.Duration) error // injectable pacing for testing
}

// NewService creates a stock price service. Tiers run in order: the chart
// API, the quote page (skipped when page is nil), then the last stored price.
// pacing is the delay between tickers in UpdateAllStockPrices.
func NewService(
	chart interfaces.StockChartClient,
	page interfaces.QuotePageClient,
	storage interfaces.StorageManager,
	pacing time.Duration,
	logger *common.Logger,
) *Service {
	s := &Service{
		prices:    storage.PriceStore(),
		companies: storage.CompanyStore(),
		pacing:    pacing,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepContext,
	}

	s.tiers = append(s.tiers, tier{source: models.QuoteSourceChart, fetch: chart.GetChartQuote})
	if page != nil {
		s.tiers = append(s.tiers, tier{source: models.QuoteSourceQuotePage, fetch: page.ScrapeQuote})
	}
	s.tiers = append(s.tiers, tier{source: models.QuoteSourceLastKnown, fetch: s.lastKnownQuote})
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchStockPrice walks the tier chain and returns the first quote obtained.
// When every tier fails the error is a *models.PriceUnavailableError carrying
// the ticker and the primary tier's error.
func (s *Service) FetchStockPrice(ctx context.Context, ticker string) (*models.StockQuote, error) {
	var primaryErr error

	for i, t := range s.tiers {
		quote, err := t.fetch(ctx, ticker)
		if err == nil && quote != nil {
			if i > 0 {
				s.logger.Warn().
					Str("ticker", ticker).
					Str("source", t.source).
					Float64("price", quote.Price).
					Msg("Stock price obtained from fallback source")
			} else {
				s.logger.Info().Str("ticker", ticker).Float64("price", quote.Price).Msg("Fetched stock price")
			}
			return quote, nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned no quote", t.source)
		}
		if i == 0 {
			primaryErr = err
		}
		s.logger.Debug().Err(err).Str("ticker", ticker).Str("source", t.source).Msg("Stock price source failed")
	}

	s.logger.Error().Err(primaryErr).Str("ticker", ticker).Msg("All stock price sources failed")
	return nil, &models.PriceUnavailableError{Source: "stock", Ticker: ticker, Cause: primaryErr}
}

// lastKnownQuote is the final tier: the most recent stored price.
func (s *Service) lastKnownQuote(ctx context.Context, ticker string) (*models.StockQuote, error) {
	last, err := s.prices.LatestStockPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, errNoStoredPrice
	}

	s.logger.Warn().
		Str("source", models.QuoteSourceLastKnown).
		Str("ticker", ticker).
		Float64("price", last.Price).
		Time("recorded_at", last.Timestamp).
		Msg("Using last known stock price")

	return &models.StockQuote{
		Ticker:    ticker,
		Price:     last.Price,
		Currency:  last.Currency,
		Source:    models.QuoteSourceLastKnown,
		Timestamp: last.Timestamp,
	}, nil
}

// UpdateStockPrice fetches a quote, appends it as a new price point and,
// when a live source reported shares outstanding, writes them (in millions)
// to the company row.
func (s *Service) UpdateStockPrice(ctx context.Context, ticker string) (*models.StockPricePoint, error) {
	quote, err := s.FetchStockPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}

	currency := quote.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	point := models.NewStockPricePoint(ticker, quote.Price, currency, s.now())
	if err := s.prices.InsertStockPrice(ctx, point); err != nil {
		return nil, fmt.Errorf("failed to store stock price for %s: %w", ticker, err)
	}

	if quote.Source != models.QuoteSourceLastKnown {
		if shares := quote.SharesOutstandingMillions(); shares != nil {
			s.updateShares(ctx, ticker, *shares)
		}
	}

	s.logger.Info().Str("ticker", ticker).Float64("price", quote.Price).Str("source", quote.Source).Msg("Recorded stock price")
	return point, nil
}

// updateShares patches shares outstanding on an existing company. A failure
// here does not undo the recorded price.
func (s *Service) updateShares(ctx context.Context, ticker string, sharesM float64) {
	existing, err := s.companies.GetCompany(ctx, ticker)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to read company for shares update")
		return
	}
	if existing == nil {
		return
	}
	if _, err := s.companies.UpsertCompany(ctx, ticker, models.CompanyPatch{SharesOutstandingMillions: &sharesM}); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to update shares outstanding")
	}
}

// UpdateAllStockPrices updates every known ticker in turn, pausing between
// tickers. A ticker's failure is logged and never stops the batch; only
// cancellation of ctx ends it early.
func (s *Service) UpdateAllStockPrices(ctx context.Context) *models.StockBatchResult {
	result := &models.StockBatchResult{}

	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list companies for stock refresh")
		return result
	}

	start := time.Now()
	for i, c := range companies {
		if i > 0 {
			if err := s.sleep(ctx, s.pacing); err != nil {
				s.logger.Warn().Err(err).Int("remaining", len(companies)-i).Msg("Stock refresh interrupted")
				break
			}
		}

		result.Attempted++
		if _, err := s.UpdateStockPrice(ctx, c.Ticker); err != nil {
			result.Failed = append(result.Failed, c.Ticker)
			s.logger.Warn().Err(err).Str("ticker", c.Ticker).Msg("Failed to update stock price")
			continue
		}
		result.Updated++
	}

	s.logger.Info().
		Int("attempted", result.Attempted).
		Int("updated", result.Updated).
		Int("failed", len(result.Failed)).
		Dur("elapsed", time.Since(start)).
		Msg("Stock price refresh complete")

	return result
}

// LatestPrice returns the most recent stored point for ticker, or nil.
func (s *Service) LatestPrice(ctx context.Context, ticker string) (*models.StockPricePoint, error) {
	return s.prices.LatestStockPrice(ctx, ticker)
}

// PriceHistory returns ticker's points from the last hours hours, newest first.
func (s *Service) PriceHistory(ctx context.Context, ticker string, hours int) ([]*models.StockPricePoint, error) {
	if hours <= 0 {
		hours = DefaultHistoryHours
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	return s.prices.StockPriceHistory(ctx, ticker, since)
}

var _ interfaces.StockPriceService = (*Service)(nil)
