// Package marketdata fetches daily prices and fundamentals from the
// Financial Modeling Prep API and adapts them into panel rows.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"tarifa/internal/coreerr"
)

const baseURL = "https://financialmodelingprep.com/stable"

// Period selects annual or quarterly statements.
type Period string

const (
	PeriodAnnual    Period = "annual"
	PeriodQuarterly Period = "quarter"
)

// Client is a thin HTTP client over the FMP stable API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     *slog.Logger
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL, e.g. to point at a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLogger overrides the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a Client with an explicit API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    baseURL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromEnv builds a Client using the FMP_API_KEY environment variable.
func NewFromEnv(opts ...Option) (*Client, error) {
	key := os.Getenv("FMP_API_KEY")
	if key == "" {
		return nil, coreerr.NewDataFetch("FMP_API_KEY environment variable not set", nil)
	}
	return New(key, opts...), nil
}

func (c *Client) buildURL(endpoint string, params url.Values) string {
	params.Set("apikey", c.apiKey)
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s/%s%s%s", c.baseURL, endpoint, sep, params.Encode())
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	reqURL := c.buildURL(endpoint, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return coreerr.NewDataFetch("building request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return coreerr.NewDataFetch(fmt.Sprintf("requesting %s", endpoint), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return coreerr.NewDataFetch("reading response body", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return coreerr.NewDataFetch("rate limit exceeded", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return coreerr.NewDataFetch(fmt.Sprintf("HTTP %d from %s: %s", resp.StatusCode, endpoint, string(body)), nil)
	}
	if strings.Contains(string(body), `"Error Message"`) {
		return coreerr.NewDataFetch(fmt.Sprintf("API error: %s", string(body)), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return coreerr.NewDataFetch(fmt.Sprintf("parsing response from %s", endpoint), err)
	}

	c.logger.DebugContext(ctx, "fetched market data", "endpoint", endpoint)
	return nil
}

// HistoricalPrices fetches daily OHLCV bars for symbol between from and to
// (both YYYY-MM-DD, either may be empty to leave the bound open).
func (c *Client) HistoricalPrices(ctx context.Context, symbol, from, to string) ([]HistoricalPrice, error) {
	params := url.Values{"symbol": {strings.ToUpper(symbol)}}
	if from != "" {
		params.Set("from", from)
	}
	if to != "" {
		params.Set("to", to)
	}
	var out []HistoricalPrice
	if err := c.get(ctx, "historical-price-eod/full", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IncomeStatements fetches the last limit income statements for symbol.
func (c *Client) IncomeStatements(ctx context.Context, symbol string, period Period, limit int) ([]IncomeStatement, error) {
	params := statementParams(symbol, period, limit)
	var out []IncomeStatement
	if err := c.get(ctx, "income-statement", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BalanceSheets fetches the last limit balance sheets for symbol.
func (c *Client) BalanceSheets(ctx context.Context, symbol string, period Period, limit int) ([]BalanceSheet, error) {
	params := statementParams(symbol, period, limit)
	var out []BalanceSheet
	if err := c.get(ctx, "balance-sheet-statement", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CashFlowStatements fetches the last limit cash flow statements for symbol.
func (c *Client) CashFlowStatements(ctx context.Context, symbol string, period Period, limit int) ([]CashFlowStatement, error) {
	params := statementParams(symbol, period, limit)
	var out []CashFlowStatement
	if err := c.get(ctx, "cash-flow-statement", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Quote fetches the latest quote for symbol, which carries market cap.
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	params := url.Values{"symbol": {strings.ToUpper(symbol)}}
	var out []Quote
	if err := c.get(ctx, "quote", params, &out); err != nil {
		return Quote{}, err
	}
	if len(out) == 0 {
		return Quote{}, coreerr.NewDataFetch(fmt.Sprintf("symbol not found: %s", symbol), nil)
	}
	return out[0], nil
}

func statementParams(symbol string, period Period, limit int) url.Values {
	params := url.Values{
		"symbol": {strings.ToUpper(symbol)},
		"period": {string(period)},
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	return params
}
