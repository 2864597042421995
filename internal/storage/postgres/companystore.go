package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

const companyColumns = "ticker, name, exchange, country_code, btc_holdings, shares_outstanding_millions, last_holdings_update, created_at, updated_at"

// upsertCompanySQL inserts the ticker or patches the non-null parameters.
// $1 ticker, $2 name, $3 exchange, $4 country, $5 holdings, $6 shares (M),
// $7 last holdings update, $8 now.
const upsertCompanySQL = `
INSERT INTO companies (` + companyColumns + `)
VALUES (
	$1,
	COALESCE($2::text, $1),
	COALESCE($3::text, ''),
	COALESCE($4::text, ''),
	COALESCE($5::double precision, 0),
	$6::double precision,
	$7::timestamptz,
	$8,
	$8
)
ON CONFLICT (ticker) DO UPDATE SET
	name                        = COALESCE($2::text, companies.name),
	exchange                    = COALESCE($3::text, companies.exchange),
	country_code                = COALESCE($4::text, companies.country_code),
	btc_holdings                = COALESCE($5::double precision, companies.btc_holdings),
	shares_outstanding_millions = COALESCE($6::double precision, companies.shares_outstanding_millions),
	last_holdings_update        = COALESCE($7::timestamptz, companies.last_holdings_update),
	updated_at                  = $8
RETURNING ` + companyColumns

// CompanyStore implements interfaces.CompanyStore on Postgres.
type CompanyStore struct {
	pool   *pgxpool.Pool
	logger *common.Logger
	now    func() time.Time
}

// NewCompanyStore creates a new CompanyStore.
func NewCompanyStore(pool *pgxpool.Pool, logger *common.Logger) *CompanyStore {
	return &CompanyStore{pool: pool, logger: logger, now: time.Now}
}

func (s *CompanyStore) UpsertCompany(ctx context.Context, ticker string, patch models.CompanyPatch) (*models.Company, error) {
	row := s.pool.QueryRow(ctx, upsertCompanySQL,
		ticker,
		patch.Name,
		patch.Exchange,
		patch.CountryCode,
		patch.BTCHoldings,
		patch.SharesOutstandingMillions,
		patch.LastHoldingsUpdate,
		s.now().UTC(),
	)
	c, err := scanCompany(row)
	if err != nil {
		return nil, fmt.Errorf("upsert company %s: %w", ticker, err)
	}
	return c, nil
}

func (s *CompanyStore) GetCompany(ctx context.Context, ticker string) (*models.Company, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+companyColumns+" FROM companies WHERE ticker = $1", ticker)
	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company %s: %w", ticker, err)
	}
	return c, nil
}

func (s *CompanyStore) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+companyColumns+" FROM companies ORDER BY btc_holdings DESC, ticker ASC")
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

func (s *CompanyStore) CountCompanies(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM companies").Scan(&n); err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return n, nil
}

func scanCompany(row pgx.Row) (*models.Company, error) {
	var c models.Company
	if err := row.Scan(
		&c.Ticker,
		&c.Name,
		&c.Exchange,
		&c.CountryCode,
		&c.BTCHoldings,
		&c.SharesOutstandingMillions,
		&c.LastHoldingsUpdate,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if c.LastHoldingsUpdate != nil {
		t := c.LastHoldingsUpdate.UTC()
		c.LastHoldingsUpdate = &t
	}
	return &c, nil
}

var _ interfaces.CompanyStore = (*CompanyStore)(nil)
