// Package coingecko provides a client for the CoinGecko simple price API
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 1 // requests per second
	DefaultAsset     = "bitcoin"
	DefaultCurrency  = "usd"
)

// Client implements interfaces.BitcoinPriceClient
type Client struct {
	baseURL    string
	apiKey     string
	asset      string
	currency   string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithAPIKey sets the demo API key sent as x-cg-demo-api-key
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithPair sets the asset id and quote currency
func WithPair(asset, currency string) ClientOption {
	return func(c *Client) {
		if asset != "" {
			c.asset = strings.ToLower(asset)
		}
		if currency != "" {
			c.currency = strings.ToLower(currency)
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new CoinGecko client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		asset:    DefaultAsset,
		currency: DefaultCurrency,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CoinGecko API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// simplePriceResponse is the /simple/price payload: {asset: {currency: price}}
type simplePriceResponse map[string]map[string]*float64

// GetSpotPrice returns the current spot price of the configured pair
func (c *Client) GetSpotPrice(ctx context.Context) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("ids", c.asset)
	params.Set("vs_currencies", c.currency)

	path := "/simple/price"
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	var payload simplePriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	quote := payload[c.asset][c.currency]
	if quote == nil {
		return 0, fmt.Errorf("response missing %s/%s price", c.asset, c.currency)
	}
	if *quote <= 0 {
		return 0, fmt.Errorf("invalid %s/%s price: %v", c.asset, c.currency, *quote)
	}

	c.logger.Debug().
		Str("asset", c.asset).
		Str("currency", c.currency).
		Float64("price", *quote).
		Dur("elapsed", time.Since(start)).
		Msg("CoinGecko spot price")

	return *quote, nil
}

var _ interfaces.BitcoinPriceClient = (*Client)(nil)
