// Package memory provides an in-process storage backend for tests and
// single-run local use. Nothing is persisted across restarts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// Manager implements interfaces.StorageManager in memory.
type Manager struct {
	companies *CompanyStore
	prices    *PriceStore
}

// NewManager creates an empty in-memory storage manager.
func NewManager(logger *common.Logger) *Manager {
	logger.Info().Msg("In-memory storage manager initialized")
	return &Manager{
		companies: NewCompanyStore(),
		prices:    NewPriceStore(),
	}
}

func (m *Manager) CompanyStore() interfaces.CompanyStore { return m.companies }
func (m *Manager) PriceStore() interfaces.PriceStore     { return m.prices }
func (m *Manager) Backend() string                       { return common.BackendMemory }
func (m *Manager) Close() error                          { return nil }

// CompanyStore implements interfaces.CompanyStore in memory.
type CompanyStore struct {
	mu        sync.RWMutex
	companies map[string]*models.Company
	now       func() time.Time
}

// NewCompanyStore creates an empty company store.
func NewCompanyStore() *CompanyStore {
	return &CompanyStore{
		companies: make(map[string]*models.Company),
		now:       time.Now,
	}
}

func (s *CompanyStore) UpsertCompany(_ context.Context, ticker string, patch models.CompanyPatch) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	c, ok := s.companies[ticker]
	if !ok {
		c = models.NewCompanyFromPatch(ticker, patch, now)
		s.companies[ticker] = c
	} else {
		patch.Apply(c, now)
	}
	return copyCompany(c), nil
}

func (s *CompanyStore) GetCompany(_ context.Context, ticker string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[ticker]
	if !ok {
		return nil, nil
	}
	return copyCompany(c), nil
}

func (s *CompanyStore) ListCompanies(_ context.Context) ([]*models.Company, error) {
	s.mu.RLock()
	out := make([]*models.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, copyCompany(c))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].BTCHoldings != out[j].BTCHoldings {
			return out[i].BTCHoldings > out[j].BTCHoldings
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out, nil
}

func (s *CompanyStore) CountCompanies(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.companies), nil
}

func copyCompany(c *models.Company) *models.Company {
	cp := *c
	if c.SharesOutstandingMillions != nil {
		cp.SharesOutstandingMillions = models.Ptr(*c.SharesOutstandingMillions)
	}
	if c.LastHoldingsUpdate != nil {
		cp.LastHoldingsUpdate = models.Ptr(*c.LastHoldingsUpdate)
	}
	return &cp
}

// PriceStore implements interfaces.PriceStore in memory.
// Series are kept in insertion order.
type PriceStore struct {
	mu      sync.RWMutex
	bitcoin []models.BitcoinPricePoint
	stocks  map[string][]models.StockPricePoint
}

// NewPriceStore creates an empty price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{stocks: make(map[string][]models.StockPricePoint)}
}

func (s *PriceStore) InsertBitcoinPrice(_ context.Context, point *models.BitcoinPricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitcoin = append(s.bitcoin, *point)
	return nil
}

func (s *PriceStore) LatestBitcoinPrice(_ context.Context) (*models.BitcoinPricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.BitcoinPricePoint
	for i := range s.bitcoin {
		if latest == nil || !s.bitcoin[i].Timestamp.Before(latest.Timestamp) {
			latest = &s.bitcoin[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	p := *latest
	return &p, nil
}

func (s *PriceStore) BitcoinPriceHistory(_ context.Context, since time.Time) ([]*models.BitcoinPricePoint, error) {
	s.mu.RLock()
	var out []*models.BitcoinPricePoint
	for _, p := range s.bitcoin {
		if !p.Timestamp.Before(since) {
			p := p
			out = append(out, &p)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *PriceStore) InsertStockPrice(_ context.Context, point *models.StockPricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[point.Ticker] = append(s.stocks[point.Ticker], *point)
	return nil
}

func (s *PriceStore) LatestStockPrice(_ context.Context, ticker string) (*models.StockPricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.stocks[ticker]
	var latest *models.StockPricePoint
	for i := range series {
		if latest == nil || !series[i].Timestamp.Before(latest.Timestamp) {
			latest = &series[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	p := *latest
	return &p, nil
}

func (s *PriceStore) StockPriceHistory(_ context.Context, ticker string, since time.Time) ([]*models.StockPricePoint, error) {
	s.mu.RLock()
	var out []*models.StockPricePoint
	for _, p := range s.stocks[ticker] {
		if !p.Timestamp.Before(since) {
			p := p
			out = append(out, &p)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Compile-time checks
var (
	_ interfaces.StorageManager = (*Manager)(nil)
	_ interfaces.CompanyStore   = (*CompanyStore)(nil)
	_ interfaces.PriceStore     = (*PriceStore)(nil)
)
