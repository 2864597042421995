package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/treasury/internal/app"
	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/models"
)

// upstream fakes CoinGecko and the Yahoo chart API.
type upstream struct {
	btcDown    atomic.Bool
	chartCalls atomic.Int32
}

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/simple/price", func(w http.ResponseWriter, r *http.Request) {
		if u.btcDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"bitcoin":{"usd":50000}}`))
	})
	mux.HandleFunc("/chart/", func(w http.ResponseWriter, r *http.Request) {
		u.chartCalls.Add(1)
		w.Write([]byte(`{"chart":{"result":[{"meta":{"currency":"USD","regularMarketPrice":100,"sharesOutstanding":10000000}}]}}`))
	})
	mux.HandleFunc("/quote/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}

type testEnv struct {
	app      *app.App
	handler  http.Handler
	upstream *upstream
}

func newTestEnv(t *testing.T, mutate ...func(*common.Config)) *testEnv {
	t.Helper()
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	t.Cleanup(srv.Close)

	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = common.BackendMemory
	cfg.Scheduler.Enabled = false
	cfg.Scheduler.StartupRefresh = false
	cfg.Scheduler.StockPacing = "0s"
	cfg.Clients.CoinGecko.BaseURL = srv.URL
	cfg.Clients.CoinGecko.RateLimit = 100
	cfg.Clients.Yahoo.BaseURL = srv.URL
	cfg.Clients.Yahoo.QuotePageURL = srv.URL + "/quote"
	cfg.Clients.Yahoo.RateLimit = 100
	for _, m := range mutate {
		m(cfg)
	}

	a, err := app.New(context.Background(), cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	return &testEnv{app: a, handler: NewServer(a).Handler(), upstream: up}
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) addCompany(t *testing.T, ticker string, holdings, sharesM float64) {
	t.Helper()
	_, err := e.app.Storage.CompanyStore().UpsertCompany(context.Background(), ticker, models.CompanyPatch{
		Name:                      models.Ptr(ticker + " Corp"),
		BTCHoldings:               models.Ptr(holdings),
		SharesOutstandingMillions: models.Ptr(sharesM),
	})
	require.NoError(t, err)
}

func (e *testEnv) addPrices(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	ps := e.app.Storage.PriceStore()
	now := time.Now()
	require.NoError(t, ps.InsertBitcoinPrice(ctx, models.NewBitcoinPricePoint(49000, "USD", now.Add(-2*time.Hour))))
	require.NoError(t, ps.InsertBitcoinPrice(ctx, models.NewBitcoinPricePoint(50000, "USD", now.Add(-time.Minute))))
	require.NoError(t, ps.InsertStockPrice(ctx, models.NewStockPricePoint("AAA", 100, "USD", now.Add(-time.Hour))))
}

// decode reads an envelope and unmarshals its data into v (when non-nil).
func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) Envelope {
	t.Helper()
	var raw struct {
		Envelope
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw), rr.Body.String())
	if v != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return raw.Envelope
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health", "/api/health"} {
		rr := env.do(t, http.MethodGet, path)
		require.Equal(t, http.StatusOK, rr.Code, path)

		var data map[string]interface{}
		got := decode(t, rr, &data)
		assert.True(t, got.Success)
		assert.False(t, got.Timestamp.IsZero())
		assert.Equal(t, "healthy", data["status"])
		assert.Equal(t, common.BackendMemory, data["storage"])
		assert.Contains(t, data, "scheduler")
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/version")
	require.Equal(t, http.StatusOK, rr.Code)

	var info common.VersionInfo
	decode(t, rr, &info)
	assert.Equal(t, common.Version, info.Version)
}

func TestCompanies_NoBitcoinPrice(t *testing.T) {
	env := newTestEnv(t)
	env.addCompany(t, "AAA", 1000, 10)

	rr := env.do(t, http.MethodGet, "/api/companies")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	got := decode(t, rr, nil)
	assert.False(t, got.Success)
	assert.Equal(t, CodeNoBitcoinPrice, got.Code)
}

func TestCompanies_Views(t *testing.T) {
	env := newTestEnv(t)
	env.addCompany(t, "AAA", 10000, 10)
	env.addCompany(t, "BBB", 500, 1)
	env.addPrices(t)

	rr := env.do(t, http.MethodGet, "/api/companies")
	require.Equal(t, http.StatusOK, rr.Code)

	var views []models.TreasuryView
	decode(t, rr, &views)
	require.Len(t, views, 2)
	assert.Equal(t, "AAA", views[0].Ticker)
	require.NotNil(t, views[0].MarketCap)
	assert.Equal(t, 1_000_000_000.0, *views[0].MarketCap)
	assert.Equal(t, 50000.0, views[0].BitcoinPrice)
	assert.False(t, views[1].MetricsAvailable)
}

func TestCompany(t *testing.T) {
	env := newTestEnv(t)
	env.addCompany(t, "AAA", 10000, 10)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantErr  string
	}{
		{"empty ticker", "/api/companies/", http.StatusBadRequest, "Invalid ticker symbol"},
		{"too long", "/api/companies/ABCDEFGHIJK", http.StatusBadRequest, "Ticker symbol too long"},
		{"unknown", "/api/companies/ZZZ", http.StatusNotFound, "Company not found"},
		{"lower case known", "/api/companies/aaa", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tt.path)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			got := decode(t, rr, nil)
			if got.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", got.Error, tt.wantErr)
			}
		})
	}
}

func TestCompany_WithoutBitcoinPriceStillReturnsCompany(t *testing.T) {
	env := newTestEnv(t)
	env.addCompany(t, "AAA", 10000, 10)
	require.NoError(t, env.app.Storage.PriceStore().InsertStockPrice(context.Background(),
		models.NewStockPricePoint("AAA", 100, "USD", time.Now())))

	rr := env.do(t, http.MethodGet, "/api/companies/AAA")
	require.Equal(t, http.StatusOK, rr.Code)

	var view models.TreasuryView
	decode(t, rr, &view)
	assert.Equal(t, "AAA Corp", view.Name)
	require.NotNil(t, view.StockPrice)
	assert.Equal(t, 100.0, *view.StockPrice)
	assert.False(t, view.MetricsAvailable)
}

func TestBitcoinPrice(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/bitcoin-price")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	env.addPrices(t)
	rr = env.do(t, http.MethodGet, "/api/bitcoin-price")
	require.Equal(t, http.StatusOK, rr.Code)

	var point models.BitcoinPricePoint
	decode(t, rr, &point)
	assert.Equal(t, 50000.0, point.Price)
}

func TestPriceHistory(t *testing.T) {
	env := newTestEnv(t)
	env.addPrices(t)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantBTC   int
		wantStock int
	}{
		{"default 24h", "", http.StatusOK, 2, 0},
		{"one hour", "?hours=1", http.StatusOK, 1, 0},
		{"with ticker", "?hours=24&ticker=aaa", http.StatusOK, 2, 1},
		{"zero", "?hours=0", http.StatusBadRequest, 0, 0},
		{"too large", "?hours=8761", http.StatusBadRequest, 0, 0},
		{"garbage", "?hours=abc", http.StatusBadRequest, 0, 0},
		{"bad ticker", "?ticker=ABCDEFGHIJK", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/api/price-history"+tt.query)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var data priceHistoryResponse
			decode(t, rr, &data)
			if len(data.Bitcoin) != tt.wantBTC {
				t.Errorf("bitcoin points = %d, want %d", len(data.Bitcoin), tt.wantBTC)
			}
			if len(data.Stock) != tt.wantStock {
				t.Errorf("stock points = %d, want %d", len(data.Stock), tt.wantStock)
			}
		})
	}
}

func TestPriceChart(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/price-history/chart.png")
	assert.Equal(t, http.StatusNotFound, rr.Code, "no history yet")

	env.addPrices(t)
	rr = env.do(t, http.MethodGet, "/api/price-history/chart.png?hours=24")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "\x89PNG"))
}

func TestUpdatePrices(t *testing.T) {
	env := newTestEnv(t)
	env.addCompany(t, "AAA", 10000, 10)

	rr := env.do(t, http.MethodGet, "/api/update-prices")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/update-prices?force=true")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data updatePricesResponse
	decode(t, rr, &data)
	require.NotNil(t, data.BitcoinPrice)
	assert.Equal(t, 50000.0, data.BitcoinPrice.Price)
	assert.True(t, data.Forced)
	assert.True(t, data.StocksUpdated)
	require.NotNil(t, data.Stocks)
	assert.Equal(t, 1, data.Stocks.Updated)
	assert.Equal(t, int32(1), env.upstream.chartCalls.Load())

	latest, err := env.app.StockService.LatestPrice(context.Background(), "AAA")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 100.0, latest.Price)
}

func TestUpdatePrices_BitcoinFallbackToLastKnown(t *testing.T) {
	env := newTestEnv(t)
	env.addPrices(t)
	env.upstream.btcDown.Store(true)

	rr := env.do(t, http.MethodPost, "/api/update-prices")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data updatePricesResponse
	decode(t, rr, &data)
	require.NotNil(t, data.BitcoinPrice)
	assert.Equal(t, 50000.0, data.BitcoinPrice.Price)
}

func TestUpdatePrices_BitcoinUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.btcDown.Store(true)

	rr := env.do(t, http.MethodPost, "/api/update-prices")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	got := decode(t, rr, nil)
	assert.Equal(t, CodeUpstream, got.Code)
}

func TestUpdateHoldings(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/update-holdings")
	require.Equal(t, http.StatusOK, rr.Code)

	var result models.HoldingsRefreshResult
	decode(t, rr, &result)
	assert.Equal(t, 29, result.Inserted)
}

func TestMarketStatus(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/market-status")
	require.Equal(t, http.StatusOK, rr.Code)

	var data marketStatusResponse
	decode(t, rr, &data)
	assert.Equal(t, "America/New_York", data.Timezone)
	assert.NotEmpty(t, data.LocalTime)
	assert.Nil(t, data.NextRefresh, "scheduler not running")
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.addCompany(t, "AAA", 10000, 10)
	env.addPrices(t)

	rr := env.do(t, http.MethodGet, "/api/export.csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "bitcoin-treasuries-")

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Company", records[0][0])
	assert.Equal(t, "AAA", records[1][1])
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Bitcoin Treasury Tracker")

	rr = env.do(t, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
