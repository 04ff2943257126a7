package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"stocketl/pkg/provider"
)

const (
	defaultBaseURL     = "https://www.alphavantage.co/query"
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 256
)

// ErrMissingAPIKey indicates the client was built without credentials.
var ErrMissingAPIKey = errors.New("alphavantage: api key is required")

// Functions maps each kind to its query function name.
var Functions = map[provider.Kind]string{
	provider.KindOverview:        "OVERVIEW",
	provider.KindDailyPrices:     "TIME_SERIES_DAILY_ADJUSTED",
	provider.KindBalanceSheet:    "BALANCE_SHEET",
	provider.KindIncomeStatement: "INCOME_STATEMENT",
}

// Client calls the Alpha Vantage query endpoint. It never retries.
type Client struct {
	http       *resty.Client
	baseURL    string
	apiKey     string
	outputSize string
	timeout    time.Duration
}

type settings struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	outputSize string
	timeout    time.Duration
}

// Option configures a new Client.
type Option func(*settings)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithBaseURL overrides the query endpoint URL.
func WithBaseURL(url string) Option {
	return func(s *settings) {
		if url != "" {
			s.baseURL = url
		}
	}
}

// WithAPIKey sets the apikey query parameter.
func WithAPIKey(key string) Option {
	return func(s *settings) {
		s.apiKey = strings.TrimSpace(key)
	}
}

// WithOutputSize sets compact or full for the daily series.
func WithOutputSize(size string) Option {
	return func(s *settings) {
		s.outputSize = strings.ToLower(strings.TrimSpace(size))
	}
}

// WithTimeout bounds each Fetch call.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewClient constructs an Alpha Vantage client.
func NewClient(opts ...Option) (*Client, error) {
	s := &settings{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(s)
	}
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	hc := s.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	rc := resty.NewWithClient(hc).
		SetHeader("Accept", "application/json").
		SetLogger(logxLogger{})
	installHooks(rc)
	return &Client{
		http:       rc,
		baseURL:    s.baseURL,
		apiKey:     s.apiKey,
		outputSize: s.outputSize,
		timeout:    s.timeout,
	}, nil
}

// Fetch requests one endpoint for one symbol and decodes the JSON body.
func (c *Client) Fetch(ctx context.Context, kind provider.Kind, symbol string) (provider.RawRecord, error) {
	fn, ok := Functions[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrUnknownKind, kind)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := map[string]string{
		"function": fn,
		"symbol":   symbol,
		"apikey":   c.apiKey,
	}
	if kind == provider.KindDailyPrices && c.outputSize != "" {
		params["outputsize"] = c.outputSize
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.baseURL)
	if err != nil {
		return nil, &provider.TransportError{Kind: kind, Symbol: symbol, Err: redactError(err)}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &provider.TransportError{
			Kind:       kind,
			Symbol:     symbol,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected response: %s", truncate(resp.Body())),
		}
	}

	var raw provider.RawRecord
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, &provider.TransportError{Kind: kind, Symbol: symbol, StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if raw == nil {
		raw = provider.RawRecord{}
	}
	return raw, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
