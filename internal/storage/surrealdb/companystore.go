package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const companySelectFields = "ticker, name, exchange, country_code, btc_holdings, shares_outstanding_millions, last_holdings_update, created_at, updated_at"

// CompanyStore implements interfaces.CompanyStore using SurrealDB.
// Records are keyed company:<ticker>.
type CompanyStore struct {
	db     *surrealdb.DB
	logger *common.Logger
	now    func() time.Time
}

// NewCompanyStore creates a new CompanyStore.
func NewCompanyStore(db *surrealdb.DB, logger *common.Logger) *CompanyStore {
	return &CompanyStore{db: db, logger: logger, now: time.Now}
}

func companyRID(ticker string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(tableCompany, tickerToID(ticker))
}

// UpsertCompany reads the current row, applies the patch and writes the
// whole row back. Concurrent writers for the same ticker are last-writer-wins.
func (s *CompanyStore) UpsertCompany(ctx context.Context, ticker string, patch models.CompanyPatch) (*models.Company, error) {
	existing, err := s.GetCompany(ctx, ticker)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var company *models.Company
	if existing == nil {
		company = models.NewCompanyFromPatch(ticker, patch, now)
	} else {
		company = existing
		patch.Apply(company, now)
	}

	sql := "UPSERT $rid CONTENT $company"
	vars := map[string]any{
		"rid":     companyRID(ticker),
		"company": company,
	}
	if _, err := surrealdb.Query[[]models.Company](ctx, s.db, sql, vars); err != nil {
		return nil, fmt.Errorf("failed to upsert company %s: %w", ticker, err)
	}

	s.logger.Debug().
		Str("ticker", ticker).
		Bool("inserted", existing == nil).
		Msg("Company upserted")

	return company, nil
}

func (s *CompanyStore) GetCompany(ctx context.Context, ticker string) (*models.Company, error) {
	sql := "SELECT " + companySelectFields + " FROM $rid"
	vars := map[string]any{"rid": companyRID(ticker)}

	results, err := surrealdb.Query[[]models.Company](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get company %s: %w", ticker, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *CompanyStore) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	sql := "SELECT " + companySelectFields + " FROM company ORDER BY btc_holdings DESC, ticker ASC"
	results, err := surrealdb.Query[[]models.Company](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	var companies []*models.Company
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			companies = append(companies, &(*results)[0].Result[i])
		}
	}
	return companies, nil
}

func (s *CompanyStore) CountCompanies(ctx context.Context) (int, error) {
	sql := "SELECT count() AS cnt FROM company GROUP ALL"

	type countResult struct {
		Cnt int `json:"cnt"`
	}

	results, err := surrealdb.Query[[]countResult](ctx, s.db, sql, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].Cnt, nil
	}
	return 0, nil
}

var _ interfaces.CompanyStore = (*CompanyStore)(nil)
