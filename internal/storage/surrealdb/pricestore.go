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

// priceRecord is the stored shape of both price series. Ordering and range
// filters use timestamp_ms; timestamp is kept for readability in the console.
type priceRecord struct {
	PointID     string    `json:"point_id"`
	Ticker      string    `json:"ticker,omitempty"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"`
	TimestampMs int64     `json:"timestamp_ms"`
}

const priceSelectFields = "point_id, ticker, price, currency, timestamp_ms"

func (r priceRecord) time() time.Time {
	return time.UnixMilli(r.TimestampMs).UTC()
}

// PriceStore implements interfaces.PriceStore using SurrealDB.
type PriceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(db *surrealdb.DB, logger *common.Logger) *PriceStore {
	return &PriceStore{db: db, logger: logger}
}

func (s *PriceStore) insert(ctx context.Context, table string, rec priceRecord) error {
	sql := "CREATE $rid CONTENT $rec"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID(table, rec.PointID),
		"rec": rec,
	}
	if _, err := surrealdb.Query[[]priceRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to insert %s point: %w", table, err)
	}
	return nil
}

func (s *PriceStore) query(ctx context.Context, sql string, vars map[string]any) ([]priceRecord, error) {
	results, err := surrealdb.Query[[]priceRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

func (s *PriceStore) InsertBitcoinPrice(ctx context.Context, point *models.BitcoinPricePoint) error {
	return s.insert(ctx, tableBitcoinPrice, priceRecord{
		PointID:     point.ID,
		Price:       point.Price,
		Currency:    point.Currency,
		Timestamp:   point.Timestamp,
		TimestampMs: point.Timestamp.UnixMilli(),
	})
}

func (s *PriceStore) LatestBitcoinPrice(ctx context.Context) (*models.BitcoinPricePoint, error) {
	sql := "SELECT " + priceSelectFields + " FROM bitcoin_price ORDER BY timestamp_ms DESC LIMIT 1"
	recs, err := s.query(ctx, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest bitcoin price: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return toBitcoinPoint(recs[0]), nil
}

func (s *PriceStore) BitcoinPriceHistory(ctx context.Context, since time.Time) ([]*models.BitcoinPricePoint, error) {
	sql := "SELECT " + priceSelectFields + " FROM bitcoin_price WHERE timestamp_ms >= $since ORDER BY timestamp_ms DESC"
	recs, err := s.query(ctx, sql, map[string]any{"since": since.UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("failed to get bitcoin price history: %w", err)
	}
	points := make([]*models.BitcoinPricePoint, 0, len(recs))
	for _, r := range recs {
		points = append(points, toBitcoinPoint(r))
	}
	return points, nil
}

func (s *PriceStore) InsertStockPrice(ctx context.Context, point *models.StockPricePoint) error {
	return s.insert(ctx, tableStockPrice, priceRecord{
		PointID:     point.ID,
		Ticker:      point.Ticker,
		Price:       point.Price,
		Currency:    point.Currency,
		Timestamp:   point.Timestamp,
		TimestampMs: point.Timestamp.UnixMilli(),
	})
}

func (s *PriceStore) LatestStockPrice(ctx context.Context, ticker string) (*models.StockPricePoint, error) {
	sql := "SELECT " + priceSelectFields + " FROM stock_price WHERE ticker = $ticker ORDER BY timestamp_ms DESC LIMIT 1"
	recs, err := s.query(ctx, sql, map[string]any{"ticker": ticker})
	if err != nil {
		return nil, fmt.Errorf("failed to get latest stock price for %s: %w", ticker, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return toStockPoint(recs[0]), nil
}

func (s *PriceStore) StockPriceHistory(ctx context.Context, ticker string, since time.Time) ([]*models.StockPricePoint, error) {
	sql := "SELECT " + priceSelectFields + " FROM stock_price WHERE ticker = $ticker AND timestamp_ms >= $since ORDER BY timestamp_ms DESC"
	recs, err := s.query(ctx, sql, map[string]any{"ticker": ticker, "since": since.UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("failed to get stock price history for %s: %w", ticker, err)
	}
	points := make([]*models.StockPricePoint, 0, len(recs))
	for _, r := range recs {
		points = append(points, toStockPoint(r))
	}
	return points, nil
}

func toBitcoinPoint(r priceRecord) *models.BitcoinPricePoint {
	return &models.BitcoinPricePoint{
		ID:        r.PointID,
		Price:     r.Price,
		Currency:  r.Currency,
		Timestamp: r.time(),
	}
}

func toStockPoint(r priceRecord) *models.StockPricePoint {
	return &models.StockPricePoint{
		ID:        r.PointID,
		Ticker:    r.Ticker,
		Price:     r.Price,
		Currency:  r.Currency,
		Timestamp: r.time(),
	}
}

var _ interfaces.PriceStore = (*PriceStore)(nil)
