package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarifa/internal/coreerr"
)

func TestHistoricalPrices_ParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "historical-price-eod/full")
		assert.Equal(t, "test_key", r.URL.Query().Get("apikey"))
		json.NewEncoder(w).Encode([]HistoricalPrice{{Date: "2026-01-02", Close: 101.5}})
	}))
	defer server.Close()

	c := New("test_key", WithBaseURL(server.URL))
	prices, err := c.HistoricalPrices(context.Background(), "aapl", "", "")
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, 101.5, prices[0].Close)
}

func TestGet_RateLimitReturnsDataFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New("test_key", WithBaseURL(server.URL))
	_, err := c.HistoricalPrices(context.Background(), "AAPL", "", "")
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.DataFetch))
}

func TestGet_ErrorMessageBodyIsDataFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API key"}`))
	}))
	defer server.Close()

	c := New("test_key", WithBaseURL(server.URL))
	_, err := c.Quote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.DataFetch))
}

func TestQuote_EmptyResultIsDataFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Quote{})
	}))
	defer server.Close()

	c := New("test_key", WithBaseURL(server.URL))
	_, err := c.Quote(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.DataFetch))
}

func TestNewFromEnv_MissingKeyIsDataFetchError(t *testing.T) {
	t.Setenv("FMP_API_KEY", "")
	_, err := NewFromEnv()
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.DataFetch))
}

func TestStatementParams_IncludesLimit(t *testing.T) {
	params := statementParams("aapl", PeriodAnnual, 5)
	assert.Equal(t, "AAPL", params.Get("symbol"))
	assert.Equal(t, "annual", params.Get("period"))
	assert.Equal(t, "5", params.Get("limit"))
}
