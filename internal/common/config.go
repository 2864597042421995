// Package common provides shared utilities for the treasury service
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Storage backends
const (
	BackendMemory    = "memory"
	BackendSurrealDB = "surrealdb"
	BackendPostgres  = "postgres"
)

// Config holds all configuration for the treasury service
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	API         APIConfig       `toml:"api"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend   string          `toml:"backend"` // memory, surrealdb or postgres
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
	Postgres  PostgresConfig  `toml:"postgres"`
}

// SurrealDBConfig holds SurrealDB connection settings
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`
	MinConns int    `toml:"min_conns"`
	MaxConns int    `toml:"max_conns"`
}

// Address returns a display address for the configured backend.
func (c *StorageConfig) Address() string {
	switch c.Backend {
	case BackendSurrealDB:
		return c.SurrealDB.Address
	case BackendPostgres:
		return fmt.Sprintf("postgres://%s:%d/%s", c.Postgres.Host, c.Postgres.Port, c.Postgres.Name)
	default:
		return c.Backend
	}
}

// ClientsConfig holds upstream client configurations
type ClientsConfig struct {
	CoinGecko  CoinGeckoConfig  `toml:"coingecko"`
	Yahoo      YahooConfig      `toml:"yahoo"`
	Treasuries TreasuriesConfig `toml:"treasuries"`
}

// CoinGeckoConfig holds CoinGecko API configuration
type CoinGeckoConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	Asset     string `toml:"asset"`
	Currency  string `toml:"currency"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *CoinGeckoConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// YahooConfig holds Yahoo Finance configuration for both the chart API and the
// quote page used as a scrape fallback.
type YahooConfig struct {
	BaseURL      string `toml:"base_url"`
	QuotePageURL string `toml:"quote_page_url"`
	UserAgent    string `toml:"user_agent"`
	RateLimit    int    `toml:"rate_limit"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// TreasuriesConfig configures the company holdings source.
// An empty CSVPath uses the built-in list.
type TreasuriesConfig struct {
	CSVPath string `toml:"csv_path"`
}

// SchedulerConfig holds refresh cadence settings. Intervals are in minutes.
type SchedulerConfig struct {
	Enabled                 bool   `toml:"enabled"`
	StartupRefresh          bool   `toml:"startup_refresh"`
	BitcoinIntervalMinutes  int    `toml:"bitcoin_interval_minutes"`
	StockIntervalMinutes    int    `toml:"stock_interval_minutes"`
	HoldingsIntervalMinutes int    `toml:"holdings_interval_minutes"`
	StockPacing             string `toml:"stock_pacing"`
	GateStocksOnMarketHours bool   `toml:"gate_stocks_on_market_hours"`
}

// GetBitcoinInterval returns the Bitcoin cycle interval.
func (c *SchedulerConfig) GetBitcoinInterval() time.Duration {
	return minutes(c.BitcoinIntervalMinutes, 30)
}

// GetStockInterval returns the stock cycle interval.
func (c *SchedulerConfig) GetStockInterval() time.Duration {
	return minutes(c.StockIntervalMinutes, 30)
}

// GetHoldingsInterval returns the holdings cycle interval: the configured
// minutes floor-divided into whole hours, never less than one hour.
func (c *SchedulerConfig) GetHoldingsInterval() time.Duration {
	m := c.HoldingsIntervalMinutes
	if m <= 0 {
		m = 360
	}
	hours := m / 60
	if hours < 1 {
		hours = 1
	}
	return time.Duration(hours) * time.Hour
}

// GetStockPacing returns the delay between consecutive ticker fetches.
func (c *SchedulerConfig) GetStockPacing() time.Duration {
	return parseDuration(c.StockPacing, time.Second)
}

// APIConfig holds REST API settings.
type APIConfig struct {
	RateLimitWindow string `toml:"rate_limit_window"`
	RateLimitMax    int    `toml:"rate_limit_max"`
}

// GetRateLimitWindow parses and returns the rate limit window
func (c *APIConfig) GetRateLimitWindow() time.Duration {
	return parseDuration(c.RateLimitWindow, 15*time.Minute)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// DefaultUserAgent identifies outbound requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; BTC-Treasury-Bot/1.0)"

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3001,
		},
		Storage: StorageConfig{
			Backend: BackendSurrealDB,
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Username:  "root",
				Password:  "root",
				Namespace: "treasury",
				Database:  "treasury",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "treasury",
				User:     "treasury",
				SSLMode:  "prefer",
				MinConns: 1,
				MaxConns: 5,
			},
		},
		Clients: ClientsConfig{
			CoinGecko: CoinGeckoConfig{
				BaseURL:   "https://api.coingecko.com/api/v3",
				Asset:     "bitcoin",
				Currency:  "usd",
				RateLimit: 1,
				Timeout:   "10s",
			},
			Yahoo: YahooConfig{
				BaseURL:      "https://query1.finance.yahoo.com/v8/finance",
				QuotePageURL: "https://finance.yahoo.com/quote",
				UserAgent:    DefaultUserAgent,
				RateLimit:    2,
				Timeout:      "10s",
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:                 true,
			StartupRefresh:          true,
			BitcoinIntervalMinutes:  30,
			StockIntervalMinutes:    30,
			HoldingsIntervalMinutes: 360,
			StockPacing:             "1s",
		},
		API: APIConfig{
			RateLimitWindow: "15m",
			RateLimitMax:    100,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Outputs:    []string{"console"},
			FilePath:   "./logs/treasury.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded before overrides apply;
// variables already set in the environment win.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TREASURY_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("TREASURY_HOST"); host != "" {
		config.Server.Host = host
	}

	// PORT is honoured for platform deployments; TREASURY_PORT wins.
	for _, key := range []string{"PORT", "TREASURY_PORT"} {
		if port := os.Getenv(key); port != "" {
			if p, err := strconv.Atoi(port); err == nil {
				config.Server.Port = p
			}
		}
	}

	if level := os.Getenv("TREASURY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage
	if v := os.Getenv("TREASURY_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("TREASURY_SURREALDB_ADDRESS"); v != "" {
		config.Storage.SurrealDB.Address = v
	}
	if v := os.Getenv("TREASURY_POSTGRES_HOST"); v != "" {
		config.Storage.Postgres.Host = v
	}
	if v := os.Getenv("TREASURY_POSTGRES_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Storage.Postgres.Port = p
		}
	}
	if v := os.Getenv("TREASURY_POSTGRES_USER"); v != "" {
		config.Storage.Postgres.User = v
	}
	if v := os.Getenv("TREASURY_POSTGRES_PASSWORD"); v != "" {
		config.Storage.Postgres.Password = v
	}
	if v := os.Getenv("TREASURY_POSTGRES_NAME"); v != "" {
		config.Storage.Postgres.Name = v
	}

	// Upstreams
	if v := os.Getenv("COINGECKO_API_URL"); v != "" {
		config.Clients.CoinGecko.BaseURL = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		config.Clients.CoinGecko.APIKey = v
	}
	if v := os.Getenv("YAHOO_FINANCE_API_URL"); v != "" {
		config.Clients.Yahoo.BaseURL = v
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		config.Clients.Yahoo.UserAgent = v
	}
	if v := os.Getenv("TREASURY_HOLDINGS_CSV"); v != "" {
		config.Clients.Treasuries.CSVPath = v
	}

	// Scheduler intervals (minutes)
	setMinutes("BITCOIN_PRICE_UPDATE_INTERVAL", &config.Scheduler.BitcoinIntervalMinutes)
	setMinutes("STOCK_PRICE_UPDATE_INTERVAL", &config.Scheduler.StockIntervalMinutes)
	setMinutes("HOLDINGS_UPDATE_INTERVAL", &config.Scheduler.HoldingsIntervalMinutes)

	if v := os.Getenv("TREASURY_SCHEDULER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Scheduler.Enabled = b
		}
	}
	if v := os.Getenv("TREASURY_GATE_STOCKS_ON_MARKET_HOURS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Scheduler.GateStocksOnMarketHours = b
		}
	}
}

func setMinutes(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSurrealDB, BackendPostgres:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func minutes(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Minute
}
