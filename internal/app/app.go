// Package app wires configuration, storage, upstream clients, services and
// the scheduler into a single process.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/treasury/internal/clients/coingecko"
	"github.com/bobmcallan/treasury/internal/clients/treasuries"
	"github.com/bobmcallan/treasury/internal/clients/yahoo"
	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/services/bitcoin"
	"github.com/bobmcallan/treasury/internal/services/company"
	"github.com/bobmcallan/treasury/internal/services/market"
	"github.com/bobmcallan/treasury/internal/services/scheduler"
	"github.com/bobmcallan/treasury/internal/services/stock"
	"github.com/bobmcallan/treasury/internal/services/treasury"
	"github.com/bobmcallan/treasury/internal/storage"
)

// App holds all initialized services and clients.
// It is the shared core used by every cmd/treasury-server subcommand.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	Storage         interfaces.StorageManager
	BitcoinService  interfaces.BitcoinPriceService
	StockService    interfaces.StockPriceService
	CompanyService  interfaces.CompanyService
	TreasuryService interfaces.TreasuryService
	Market          *market.Clock
	Hub             *scheduler.RefreshHub
	Scheduler       *scheduler.Scheduler
	StartupTime     time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns configPath, else TREASURY_CONFIG, else
// treasury.toml beside the binary, else config/treasury.toml.
func ResolveConfigPath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv("TREASURY_CONFIG"); p != "" {
		return p
	}
	p := filepath.Join(getBinaryDir(), "treasury.toml")
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return "config/treasury.toml" // fallback for development
	}
	return p
}

// NewApp loads configuration and initializes the application.
// configPath may be empty, in which case ResolveConfigPath applies.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return New(ctx, config, logger)
}

// New initializes storage, clients and services from an already loaded config.
func New(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewStorageManager(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Upstream clients
	cg := config.Clients.CoinGecko
	coingeckoClient := coingecko.NewClient(
		coingecko.WithBaseURL(cg.BaseURL),
		coingecko.WithAPIKey(cg.APIKey),
		coingecko.WithPair(cg.Asset, cg.Currency),
		coingecko.WithLogger(logger),
		coingecko.WithRateLimit(cg.RateLimit),
		coingecko.WithTimeout(cg.GetTimeout()),
	)

	yc := config.Clients.Yahoo
	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(yc.BaseURL),
		yahoo.WithQuotePageURL(yc.QuotePageURL),
		yahoo.WithUserAgent(yc.UserAgent),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(yc.RateLimit),
		yahoo.WithTimeout(yc.GetTimeout()),
	)

	var holdingsSource interfaces.HoldingsSource = treasuries.NewStaticSource()
	if path := config.Clients.Treasuries.CSVPath; path != "" {
		holdingsSource = treasuries.NewCSVSource(path, logger)
		logger.Info().Str("path", path).Msg("Using CSV holdings source")
	}

	// Services
	bitcoinService := bitcoin.NewService(coingeckoClient, storageManager.PriceStore(), cg.Currency, logger)
	stockService := stock.NewService(yahooClient, yahooClient, storageManager, config.Scheduler.GetStockPacing(), logger)
	companyService := company.NewService(holdingsSource, storageManager.CompanyStore(), logger)
	treasuryService := treasury.NewService(storageManager, logger)
	clock := market.NewClock()

	hub := scheduler.NewRefreshHub(logger)
	go hub.Run()

	sched := scheduler.New(
		bitcoinService,
		stockService,
		companyService,
		clock,
		hub,
		logger,
		scheduler.ConfigFrom(config.Scheduler),
	)

	a := &App{
		Config:          config,
		Logger:          logger,
		Storage:         storageManager,
		BitcoinService:  bitcoinService,
		StockService:    stockService,
		CompanyService:  companyService,
		TreasuryService: treasuryService,
		Market:          clock,
		Hub:             hub,
		Scheduler:       sched,
		StartupTime:     startupStart,
	}

	logger.Info().
		Str("storage", storageManager.Backend()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Seed inserts the initial company list when the company table is empty.
func (a *App) Seed(ctx context.Context) error {
	n, err := a.CompanyService.SeedIfEmpty(ctx)
	if err != nil {
		return fmt.Errorf("seed companies: %w", err)
	}
	if n > 0 {
		a.Logger.Info().Int("companies", n).Msg("Seeded initial companies")
	}
	return nil
}

// StartScheduler starts the refresh cycles unless disabled in config.
func (a *App) StartScheduler() {
	if !a.Config.Scheduler.Enabled {
		a.Logger.Info().Msg("Scheduler disabled by config")
		return
	}
	a.Scheduler.Start()
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, stop websocket hub, close storage.
func (a *App) Close(ctx context.Context) {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduler did not stop cleanly")
		}
	}
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}
