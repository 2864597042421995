package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/models"
	"github.com/bobmcallan/treasury/internal/services/bitcoin"
	"github.com/bobmcallan/treasury/internal/services/scheduler"
	"github.com/bobmcallan/treasury/internal/services/treasury"
)

// History window bounds for /api/price-history, in hours.
const (
	defaultHistoryHours = 24
	maxHistoryHours     = 8760
)

// writeServiceError maps service error kinds to status codes. Anything
// unrecognised is logged and reported as a 500 naming the failed action.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, models.ErrInvalidTicker):
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid ticker symbol", CodeInvalidTicker)
	case errors.Is(err, models.ErrCompanyNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, "Company not found", CodeNotFound)
	case errors.Is(err, models.ErrNoBitcoinPrice):
		WriteErrorWithCode(w, http.StatusServiceUnavailable, "No Bitcoin price available", CodeNoBitcoinPrice)
	case errors.Is(err, models.ErrUpstreamUnavailable):
		s.logger.Warn().Err(err).Str("action", action).Msg("Upstream unavailable")
		WriteErrorWithCode(w, http.StatusBadGateway, "Failed to "+action+": upstream unavailable", CodeUpstream)
	default:
		s.logger.Error().Err(err).Str("action", action).Msg("Request failed")
		WriteErrorWithCode(w, http.StatusInternalServerError, "Failed to "+action, CodeInternal)
	}
}

// --- System handlers ---

type healthResponse struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Storage   string           `json:"storage"`
	Scheduler scheduler.Status `json:"scheduler"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.app.StartupTime).Round(time.Second).String(),
		Version:   common.Version,
		Storage:   s.app.Storage.Backend(),
		Scheduler: s.app.Scheduler.Status(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

type marketStatusResponse struct {
	IsOpen      bool       `json:"is_open"`
	Message     string     `json:"message"`
	Timezone    string     `json:"timezone"`
	LocalTime   string     `json:"local_time"`
	NextOpen    time.Time  `json:"next_open"`
	NextRefresh *time.Time `json:"next_refresh,omitempty"`
}

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	st := s.app.Market.Status()
	msg := "US stock market is closed"
	if st.IsOpen {
		msg = "US stock market is open"
	}
	WriteJSON(w, http.StatusOK, marketStatusResponse{
		IsOpen:      st.IsOpen,
		Message:     msg,
		Timezone:    st.Timezone,
		LocalTime:   st.LocalTime,
		NextOpen:    st.NextOpen,
		NextRefresh: s.app.Scheduler.NextRun(models.CycleStocks),
	})
}

// --- Company handlers ---

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	views, err := s.app.TreasuryService.Views(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "fetch companies")
		return
	}
	WriteJSON(w, http.StatusOK, views)
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	raw := strings.TrimSpace(PathParam(r, "/api/companies/", ""))
	if raw == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid ticker symbol", CodeInvalidTicker)
		return
	}
	if len(raw) > models.MaxTickerLength {
		WriteErrorWithCode(w, http.StatusBadRequest, "Ticker symbol too long", CodeInvalidTicker)
		return
	}

	ctx := r.Context()
	view, err := s.app.TreasuryService.View(ctx, raw)
	if errors.Is(err, models.ErrNoBitcoinPrice) {
		view, err = s.companyWithoutMetrics(ctx, raw)
	}
	if err != nil {
		s.writeServiceError(w, err, "fetch company")
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// companyWithoutMetrics builds a view for a company before any Bitcoin
// price has been recorded: stored data and stock price, no metrics.
func (s *Server) companyWithoutMetrics(ctx context.Context, ticker string) (*models.TreasuryView, error) {
	c, err := s.app.CompanyService.GetCompany(ctx, ticker)
	if err != nil {
		return nil, err
	}
	view := &models.TreasuryView{Company: *c}

	latest, err := s.app.StockService.LatestPrice(ctx, c.Ticker)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		ts := latest.Timestamp
		view.StockPrice = models.Ptr(latest.Price)
		view.StockCurrency = latest.Currency
		view.PriceUpdatedAt = &ts
		view.PriceStale = !common.IsFresh(ts, time.Now(), common.FreshnessStockPrice)
	}
	return view, nil
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	views, err := s.app.TreasuryService.Views(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "export companies")
		return
	}

	filename := fmt.Sprintf("bitcoin-treasuries-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := treasury.WriteCSV(w, views); err != nil {
		s.logger.Warn().Err(err).Msg("CSV export interrupted")
	}
}

// --- Price handlers ---

func (s *Server) handleBitcoinPrice(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	point, err := s.app.BitcoinService.LatestPrice(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "fetch Bitcoin price")
		return
	}
	if point == nil {
		WriteErrorWithCode(w, http.StatusNotFound, "No Bitcoin price available", CodeNoBitcoinPrice)
		return
	}
	WriteJSON(w, http.StatusOK, point)
}

type priceHistoryResponse struct {
	Hours   int                         `json:"hours"`
	Bitcoin []*models.BitcoinPricePoint `json:"bitcoin"`
	Ticker  string                      `json:"ticker,omitempty"`
	Stock   []*models.StockPricePoint   `json:"stock,omitempty"`
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	hours, ok := QueryInt(r, "hours", defaultHistoryHours, 1, maxHistoryHours)
	if !ok {
		WriteErrorWithCode(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid hours parameter. Must be between 1 and %d", maxHistoryHours), CodeBadRequest)
		return
	}

	ctx := r.Context()
	resp := priceHistoryResponse{Hours: hours}

	var err error
	resp.Bitcoin, err = s.app.BitcoinService.PriceHistory(ctx, hours)
	if err != nil {
		s.writeServiceError(w, err, "fetch price history")
		return
	}
	if resp.Bitcoin == nil {
		resp.Bitcoin = []*models.BitcoinPricePoint{}
	}

	if raw := r.URL.Query().Get("ticker"); raw != "" {
		ticker, err := models.NormalizeTicker(raw)
		if err != nil {
			s.writeServiceError(w, err, "fetch price history")
			return
		}
		resp.Ticker = ticker
		resp.Stock, err = s.app.StockService.PriceHistory(ctx, ticker, hours)
		if err != nil {
			s.writeServiceError(w, err, "fetch price history")
			return
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePriceChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	hours, ok := QueryInt(r, "hours", defaultHistoryHours, 1, maxHistoryHours)
	if !ok {
		WriteErrorWithCode(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid hours parameter. Must be between 1 and %d", maxHistoryHours), CodeBadRequest)
		return
	}

	points, err := s.app.BitcoinService.PriceHistory(r.Context(), hours)
	if err != nil {
		s.writeServiceError(w, err, "fetch price history")
		return
	}
	if len(points) < 2 {
		WriteErrorWithCode(w, http.StatusNotFound, "Not enough price history to chart", CodeNotFound)
		return
	}

	png, err := bitcoin.RenderPriceChart(points)
	if err != nil {
		s.writeServiceError(w, err, "render price chart")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// --- Manual refresh handlers ---

type updatePricesResponse struct {
	Message       string                    `json:"message"`
	MarketOpen    bool                      `json:"market_open"`
	Forced        bool                      `json:"forced"`
	BitcoinPrice  *models.BitcoinPricePoint `json:"bitcoin_price"`
	StocksUpdated bool                      `json:"stocks_updated"`
	Stocks        *models.StockBatchResult  `json:"stocks,omitempty"`
}

func (s *Server) handleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	resp := updatePricesResponse{
		Message:    "Price update triggered",
		MarketOpen: s.app.Market.IsMarketOpen(),
		Forced:     QueryBool(r, "force"),
	}

	point, err := s.app.Scheduler.RefreshBitcoin(ctx, models.TriggerManual)
	if err != nil {
		s.writeServiceError(w, err, "update prices")
		return
	}
	resp.BitcoinPrice = point

	if resp.MarketOpen || resp.Forced {
		resp.Stocks = s.app.Scheduler.RefreshStocks(ctx, models.TriggerManual)
		resp.StocksUpdated = true
	}

	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateHoldings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	result, err := s.app.Scheduler.RefreshHoldings(r.Context(), models.TriggerManual)
	if err != nil {
		s.writeServiceError(w, err, "update holdings")
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
