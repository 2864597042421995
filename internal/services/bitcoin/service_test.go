package bitcoin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/models"
	"github.com/bobmcallan/treasury/internal/storage/memory"
)

// mockClient returns a fixed price or error.
type mockClient struct {
	price float64
	err   error
	calls int
}

func (m *mockClient) GetSpotPrice(ctx context.Context) (float64, error) {
	m.calls++
	return m.price, m.err
}

var testNow = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func newTestService(client *mockClient) (*Service, *memory.PriceStore) {
	store := memory.NewPriceStore()
	svc := NewService(client, store, "usd", common.NewSilentLogger())
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func TestFetchCurrentPrice_Upstream(t *testing.T) {
	svc, _ := newTestService(&mockClient{price: 67000})

	price, err := svc.FetchCurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 67000.0, price)
}

func TestFetchCurrentPrice_FallsBackToLastKnown(t *testing.T) {
	svc, store := newTestService(&mockClient{err: errors.New("connection refused")})
	require.NoError(t, store.InsertBitcoinPrice(context.Background(),
		models.NewBitcoinPricePoint(45000, "USD", testNow.Add(-3*time.Hour))))

	price, err := svc.FetchCurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45000.0, price)
}

func TestFetchCurrentPrice_NoFallbackFails(t *testing.T) {
	cause := errors.New("connection refused")
	svc, _ := newTestService(&mockClient{err: cause})

	_, err := svc.FetchCurrentPrice(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUpstreamUnavailable))
	assert.True(t, errors.Is(err, cause))

	var pu *models.PriceUnavailableError
	require.True(t, errors.As(err, &pu))
	assert.Equal(t, "bitcoin", pu.Source)
}

func TestUpdatePrice_AppendsPoint(t *testing.T) {
	svc, store := newTestService(&mockClient{price: 67000})

	point, err := svc.UpdatePrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 67000.0, point.Price)
	assert.Equal(t, "USD", point.Currency)
	assert.Equal(t, testNow, point.Timestamp)
	assert.NotEmpty(t, point.ID)

	latest, err := store.LatestBitcoinPrice(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, point.ID, latest.ID)
}

func TestUpdatePrice_StaleFallbackIsRecordedAsNewPoint(t *testing.T) {
	svc, store := newTestService(&mockClient{err: errors.New("timeout")})
	ctx := context.Background()
	require.NoError(t, store.InsertBitcoinPrice(ctx, models.NewBitcoinPricePoint(45000, "USD", testNow.Add(-time.Hour))))

	point, err := svc.UpdatePrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 45000.0, point.Price)

	history, err := svc.PriceHistory(ctx, 24)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestUpdatePrice_FailureWritesNothing(t *testing.T) {
	svc, store := newTestService(&mockClient{err: errors.New("timeout")})

	_, err := svc.UpdatePrice(context.Background())
	require.Error(t, err)

	latest, err := store.LatestBitcoinPrice(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestPriceHistory_Window(t *testing.T) {
	svc, store := newTestService(&mockClient{})
	ctx := context.Background()

	for _, age := range []time.Duration{0, 2 * time.Hour, 6 * time.Hour, 6*time.Hour + time.Second, 30 * time.Hour} {
		require.NoError(t, store.InsertBitcoinPrice(ctx, models.NewBitcoinPricePoint(60000, "USD", testNow.Add(-age))))
	}

	history, err := svc.PriceHistory(ctx, 6)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.After(history[i-1].Timestamp), "history must be newest first")
	}

	// non-positive windows use the default
	history, err = svc.PriceHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestRenderPriceChart_ValidPNG(t *testing.T) {
	points := []*models.BitcoinPricePoint{
		models.NewBitcoinPricePoint(67000, "USD", testNow),
		models.NewBitcoinPricePoint(66500, "USD", testNow.Add(-30*time.Minute)),
		models.NewBitcoinPricePoint(66000, "USD", testNow.Add(-time.Hour)),
	}

	pngBytes, err := RenderPriceChart(points)
	if err != nil {
		t.Fatalf("RenderPriceChart error: %v", err)
	}

	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if len(pngBytes) < len(pngHeader) {
		t.Fatalf("PNG output too short: %d bytes", len(pngBytes))
	}
	for i, b := range pngHeader {
		if pngBytes[i] != b {
			t.Fatalf("byte %d: got 0x%02X, want 0x%02X (not a valid PNG)", i, pngBytes[i], b)
		}
	}

	// input order is left untouched
	assert.Equal(t, 67000.0, points[0].Price)
}

func TestRenderPriceChart_TooFewPoints(t *testing.T) {
	_, err := RenderPriceChart([]*models.BitcoinPricePoint{models.NewBitcoinPricePoint(1, "USD", testNow)})
	if err == nil {
		t.Fatal("expected error for single data point, got nil")
	}
}
