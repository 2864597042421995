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

// PriceStore implements interfaces.PriceStore on Postgres.
type PriceStore struct {
	pool   *pgxpool.Pool
	logger *common.Logger
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(pool *pgxpool.Pool, logger *common.Logger) *PriceStore {
	return &PriceStore{pool: pool, logger: logger}
}

func (s *PriceStore) InsertBitcoinPrice(ctx context.Context, point *models.BitcoinPricePoint) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO bitcoin_prices (id, price, currency, ts) VALUES ($1, $2, $3, $4)",
		point.ID, point.Price, point.Currency, point.Timestamp)
	if err != nil {
		return fmt.Errorf("insert bitcoin price: %w", err)
	}
	return nil
}

func (s *PriceStore) LatestBitcoinPrice(ctx context.Context) (*models.BitcoinPricePoint, error) {
	row := s.pool.QueryRow(ctx, "SELECT id::text, price, currency, ts FROM bitcoin_prices ORDER BY ts DESC LIMIT 1")
	p, err := scanBitcoinPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest bitcoin price: %w", err)
	}
	return p, nil
}

func (s *PriceStore) BitcoinPriceHistory(ctx context.Context, since time.Time) ([]*models.BitcoinPricePoint, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id::text, price, currency, ts FROM bitcoin_prices WHERE ts >= $1 ORDER BY ts DESC", since)
	if err != nil {
		return nil, fmt.Errorf("bitcoin price history: %w", err)
	}
	defer rows.Close()

	var points []*models.BitcoinPricePoint
	for rows.Next() {
		p, err := scanBitcoinPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bitcoin price: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *PriceStore) InsertStockPrice(ctx context.Context, point *models.StockPricePoint) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO stock_prices (id, ticker, price, currency, ts) VALUES ($1, $2, $3, $4, $5)",
		point.ID, point.Ticker, point.Price, point.Currency, point.Timestamp)
	if err != nil {
		return fmt.Errorf("insert stock price for %s: %w", point.Ticker, err)
	}
	return nil
}

func (s *PriceStore) LatestStockPrice(ctx context.Context, ticker string) (*models.StockPricePoint, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT id::text, ticker, price, currency, ts FROM stock_prices WHERE ticker = $1 ORDER BY ts DESC LIMIT 1", ticker)
	p, err := scanStockPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest stock price for %s: %w", ticker, err)
	}
	return p, nil
}

func (s *PriceStore) StockPriceHistory(ctx context.Context, ticker string, since time.Time) ([]*models.StockPricePoint, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id::text, ticker, price, currency, ts FROM stock_prices WHERE ticker = $1 AND ts >= $2 ORDER BY ts DESC",
		ticker, since)
	if err != nil {
		return nil, fmt.Errorf("stock price history for %s: %w", ticker, err)
	}
	defer rows.Close()

	var points []*models.StockPricePoint
	for rows.Next() {
		p, err := scanStockPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock price: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func scanBitcoinPoint(row pgx.Row) (*models.BitcoinPricePoint, error) {
	var p models.BitcoinPricePoint
	if err := row.Scan(&p.ID, &p.Price, &p.Currency, &p.Timestamp); err != nil {
		return nil, err
	}
	p.Timestamp = p.Timestamp.UTC()
	return &p, nil
}

func scanStockPoint(row pgx.Row) (*models.StockPricePoint, error) {
	var p models.StockPricePoint
	if err := row.Scan(&p.ID, &p.Ticker, &p.Price, &p.Currency, &p.Timestamp); err != nil {
		return nil, err
	}
	p.Timestamp = p.Timestamp.UTC()
	return &p, nil
}

var _ interfaces.PriceStore = (*PriceStore)(nil)
