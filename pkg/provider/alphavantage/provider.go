package alphavantage

import (
	"net/http"

	"stocketl/pkg/provider"
)

func init() {
	provider.RegisterProvider("alphavantage", func(name string, cfg *provider.ProviderConfig) (provider.Client, error) {
		opts := []Option{
			WithAPIKey(cfg.APIKey),
			WithBaseURL(cfg.BaseURL),
			WithOutputSize(cfg.OutputSize),
			WithTimeout(cfg.Timeout),
		}
		if cfg.HTTPTimeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		return NewClient(opts...)
	})
}
