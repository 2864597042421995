package server

import (
	_ "embed"
	"net/http"
)

//go:embed web/index.html
var dashboardHTML []byte

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/market-status", s.handleMarketStatus)

	// Companies
	mux.HandleFunc("/api/companies/", s.handleCompany)
	mux.HandleFunc("/api/companies", s.handleCompanies)
	mux.HandleFunc("/api/export.csv", s.handleExportCSV)

	// Prices
	mux.HandleFunc("/api/bitcoin-price", s.handleBitcoinPrice)
	mux.HandleFunc("/api/price-history/chart.png", s.handlePriceChart)
	mux.HandleFunc("/api/price-history", s.handlePriceHistory)

	// Manual refresh
	mux.HandleFunc("/api/update-prices", s.handleUpdatePrices)
	mux.HandleFunc("/api/update-holdings", s.handleUpdateHoldings)

	// Refresh events
	mux.HandleFunc("/api/ws", s.handleWS)

	// Dashboard
	mux.HandleFunc("/", s.handleDashboard)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		WriteErrorWithCode(w, http.StatusNotFound, "Not found", CodeNotFound)
		return
	}
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(dashboardHTML)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	s.app.Hub.ServeWS(w, r)
}
