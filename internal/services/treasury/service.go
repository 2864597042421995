// Package treasury assembles treasury views: each company joined with its
// latest stock price, the latest Bitcoin price and the derived metrics.
package treasury

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
	"github.com/bobmcallan/treasury/internal/services/valuation"
)

// Service implements interfaces.TreasuryService
type Service struct {
	companies interfaces.CompanyStore
	prices    interfaces.PriceStore
	logger    *common.Logger
	now       func() time.Time // injectable clock for testing
}

// NewService creates a new treasury service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		companies: storage.CompanyStore(),
		prices:    storage.PriceStore(),
		logger:    logger,
		now:       time.Now,
	}
}

// Views returns a view per company, largest holdings first. It fails with
// models.ErrNoBitcoinPrice until a Bitcoin price has been recorded.
func (s *Service) Views(ctx context.Context) ([]*models.TreasuryView, error) {
	btc, err := s.latestBitcoinPrice(ctx)
	if err != nil {
		return nil, err
	}

	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}

	views := make([]*models.TreasuryView, 0, len(companies))
	for _, c := range companies {
		v, err := s.buildView(ctx, c, btc)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// View returns the view for one ticker.
func (s *Service) View(ctx context.Context, ticker string) (*models.TreasuryView, error) {
	normalized, err := models.NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	c, err := s.companies.GetCompany(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("get company %s: %w", normalized, err)
	}
	if c == nil {
		return nil, models.ErrCompanyNotFound
	}

	btc, err := s.latestBitcoinPrice(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, c, btc)
}

func (s *Service) latestBitcoinPrice(ctx context.Context) (*models.BitcoinPricePoint, error) {
	btc, err := s.prices.LatestBitcoinPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest bitcoin price: %w", err)
	}
	if btc == nil {
		return nil, models.ErrNoBitcoinPrice
	}
	return btc, nil
}

func (s *Service) buildView(ctx context.Context, c *models.Company, btc *models.BitcoinPricePoint) (*models.TreasuryView, error) {
	latest, err := s.prices.LatestStockPrice(ctx, c.Ticker)
	if err != nil {
		return nil, fmt.Errorf("latest stock price for %s: %w", c.Ticker, err)
	}

	v := &models.TreasuryView{
		Company:      *c,
		BitcoinPrice: btc.Price,
	}

	var stockPrice *float64
	if latest != nil {
		stockPrice = models.Ptr(latest.Price)
		ts := latest.Timestamp
		v.StockPrice = stockPrice
		v.StockCurrency = latest.Currency
		v.PriceUpdatedAt = &ts
		v.PriceStale = !common.IsFresh(ts, s.now(), common.FreshnessStockPrice)
	}

	// Metrics need both prices in one currency; a CAD or JPY listing is
	// shown with its price but no metrics until FX conversion exists.
	if latest != nil && currencyOf(latest.Currency) != currencyOf(btc.Currency) {
		s.logger.Debug().
			Str("ticker", c.Ticker).
			Str("stock_currency", latest.Currency).
			Str("btc_currency", btc.Currency).
			Msg("Currency mismatch, metrics not computed")
		stockPrice = nil
	}

	metrics, err := valuation.Compute(c, stockPrice, models.Ptr(btc.Price))
	if err != nil {
		return nil, err
	}
	v.TreasuryMetrics = metrics
	v.MetricsAvailable = metrics.Available()
	return v, nil
}

func currencyOf(code string) string {
	if code == "" {
		return models.DefaultCurrency
	}
	return strings.ToUpper(code)
}

var _ interfaces.TreasuryService = (*Service)(nil)
