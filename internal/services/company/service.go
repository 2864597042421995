// Package company maintains the company table: holdings refresh from a
// holdings source, first-run seeding and reads.
package company

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// Service implements interfaces.CompanyService
type Service struct {
	source    interfaces.HoldingsSource
	companies interfaces.CompanyStore
	logger    *common.Logger
	now       func() time.Time // injectable clock for testing
}

// NewService creates a new company service
func NewService(source interfaces.HoldingsSource, companies interfaces.CompanyStore, logger *common.Logger) *Service {
	return &Service{
		source:    source,
		companies: companies,
		logger:    logger,
		now:       time.Now,
	}
}

// RefreshHoldings pulls the holdings list and upserts one row per ticker.
// New tickers are inserted with their name; existing rows keep their name
// and have holdings, country, exchange and (when supplied) shares patched.
func (s *Service) RefreshHoldings(ctx context.Context) (*models.HoldingsRefreshResult, error) {
	start := time.Now()

	scraped, err := s.source.FetchCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}

	result := &models.HoldingsRefreshResult{}
	now := s.now().UTC()

	for _, sc := range scraped {
		ticker, err := models.NormalizeTicker(sc.Ticker)
		if err != nil || sc.BTCHoldings < 0 {
			result.Skipped++
			s.logger.Debug().Str("ticker", sc.Ticker).Msg("Skipping invalid holdings entry")
			continue
		}

		existing, err := s.companies.GetCompany(ctx, ticker)
		if err != nil {
			return result, fmt.Errorf("read company %s: %w", ticker, err)
		}

		patch := holdingsPatch(sc, now)
		if existing == nil && sc.Name != "" {
			patch.Name = models.Ptr(sc.Name)
		}

		if _, err := s.companies.UpsertCompany(ctx, ticker, patch); err != nil {
			return result, fmt.Errorf("upsert company %s: %w", ticker, err)
		}
		if existing == nil {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	s.logger.Info().
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("Holdings refresh complete")

	return result, nil
}

func holdingsPatch(sc models.ScrapedCompany, now time.Time) models.CompanyPatch {
	country := sc.Country
	if country == "" {
		country = "US"
	}
	patch := models.CompanyPatch{
		BTCHoldings:        models.Ptr(sc.BTCHoldings),
		CountryCode:        models.Ptr(country),
		LastHoldingsUpdate: models.Ptr(now),
	}
	if sc.Exchange != "" {
		patch.Exchange = models.Ptr(sc.Exchange)
	}
	if sc.SharesOutstandingMillions != nil && *sc.SharesOutstandingMillions > 0 {
		patch.SharesOutstandingMillions = models.Ptr(*sc.SharesOutstandingMillions)
	}
	return patch
}

// SeedIfEmpty inserts the initial companies when the table is empty and
// returns how many were inserted.
func (s *Service) SeedIfEmpty(ctx context.Context) (int, error) {
	count, err := s.companies.CountCompanies(ctx)
	if err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	if count > 0 {
		s.logger.Info().Int("companies", count).Msg("Company table already populated")
		return 0, nil
	}

	now := s.now().UTC()
	for _, sc := range seedCompanies {
		patch := holdingsPatch(sc, now)
		patch.Name = models.Ptr(sc.Name)
		if _, err := s.companies.UpsertCompany(ctx, sc.Ticker, patch); err != nil {
			return 0, fmt.Errorf("seed company %s: %w", sc.Ticker, err)
		}
	}

	s.logger.Info().Int("companies", len(seedCompanies)).Msg("Seeded company table")
	return len(seedCompanies), nil
}

// ListCompanies returns every company, largest holdings first.
func (s *Service) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	return s.companies.ListCompanies(ctx)
}

// GetCompany returns one company or models.ErrCompanyNotFound.
func (s *Service) GetCompany(ctx context.Context, ticker string) (*models.Company, error) {
	normalized, err := models.NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	c, err := s.companies.GetCompany(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, models.ErrCompanyNotFound
	}
	return c, nil
}

var _ interfaces.CompanyService = (*Service)(nil)
