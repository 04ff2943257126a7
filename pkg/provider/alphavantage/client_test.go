package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocketl/pkg/normalize"
	"stocketl/pkg/provider"
)

const (
	overviewBody = `{"Symbol": "IBM", "Name": "International Business Machines", "MarketCapitalization": "170000000000", "DividendDate": "None"}`
	seriesBody   = `{"Meta Data": {"2. Symbol": "IBM"}, "Time Series (Daily)": {
		"2024-01-02": {"1. open": "162.83", "4. close": "163.55"},
		"2024-01-01": {"1. open": "161.00", "4. close": "162.00"}}}`
)

func newMockServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "test-key" {
			http.Error(w, `{"Error Message": "invalid key"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch q.Get("function") {
		case "OVERVIEW":
			_, _ = w.Write([]byte(overviewBody))
		case "TIME_SERIES_DAILY_ADJUSTED":
			if q.Get("outputsize") != "compact" {
				http.Error(w, "missing outputsize", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(seriesBody))
		case "BALANCE_SHEET":
			_, _ = w.Write([]byte(`not json`))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	client, err := NewClient(WithBaseURL(server.URL), WithAPIKey("test-key"), WithOutputSize("compact"))
	require.NoError(t, err)
	return server, client
}

func TestFetchOverview(t *testing.T) {
	server, client := newMockServer(t)
	defer server.Close()

	raw, err := client.Fetch(context.Background(), provider.KindOverview, "IBM")
	require.NoError(t, err)
	assert.Equal(t, "IBM", raw["Symbol"])

	tbl, _, err := normalize.New().Normalize(provider.KindOverview, raw, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(170000000000), tbl.Rows[0]["MarketCapitalization"])
	assert.Nil(t, tbl.Rows[0]["DividendDate"])
}

func TestFetchSeries(t *testing.T) {
	server, client := newMockServer(t)
	defer server.Close()

	raw, err := client.Fetch(context.Background(), provider.KindDailyPrices, "IBM")
	require.NoError(t, err)
	tbl, _, err := normalize.New().Normalize(provider.KindDailyPrices, raw, 1)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.InDelta(t, 163.55, tbl.Rows[0]["close"], 1e-9)
}

func TestFetchStatusError(t *testing.T) {
	server, client := newMockServer(t)
	defer server.Close()

	_, err := client.Fetch(context.Background(), provider.KindIncomeStatement, "IBM")
	var te *provider.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, "IBM", te.Symbol)
	assert.Contains(t, te.Error(), "boom")
}

func TestFetchUndecodableBody(t *testing.T) {
	server, client := newMockServer(t)
	defer server.Close()

	_, err := client.Fetch(context.Background(), provider.KindBalanceSheet, "IBM")
	var te *provider.TransportError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Error(), "decode response")
}

func TestFetchNetworkError(t *testing.T) {
	server, client := newMockServer(t)
	server.Close()

	_, err := client.Fetch(context.Background(), provider.KindOverview, "IBM")
	var te *provider.TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
}

func TestFetchErrorsNeverCarryAPIKey(t *testing.T) {
	const key = "SECRET-KEY-123"
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL + "/query"
	server.Close()

	client, err := NewClient(WithBaseURL(baseURL), WithAPIKey(key))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), provider.KindOverview, "AAA")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)
	assert.Contains(t, err.Error(), "apikey="+redacted)
	assert.Contains(t, err.Error(), "symbol=AAA")
	var te *provider.TransportError
	require.True(t, errors.As(err, &te))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.test/query?apikey=REDACTED&function=OVERVIEW",
		redactURL("https://example.test/query?function=OVERVIEW&apikey=abc"))
	assert.Equal(t, "https://example.test/query?function=OVERVIEW",
		redactURL("https://example.test/query?function=OVERVIEW"))
	assert.Equal(t, "resty: GET %zz?apikey=REDACTED&x=1 failed",
		redactText("GET %s failed", "%zz?apikey=abc&x=1"))
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	client, err := NewClient(WithBaseURL(server.URL), WithAPIKey("k"), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), provider.KindOverview, "IBM")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var te *provider.TransportError
	assert.True(t, errors.As(err, &te))
	assert.NotContains(t, err.Error(), "apikey=k")
}

func TestFetchUnknownKind(t *testing.T) {
	client, err := NewClient(WithAPIKey("k"))
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), provider.Kind("earnings"), "IBM")
	assert.ErrorIs(t, err, provider.ErrUnknownKind)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
