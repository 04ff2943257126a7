package provider

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"stocketl/pkg/confkit"
)

// Config describes the data providers available to the pipeline.
type Config struct {
	Default   string                     `yaml:"default"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig represents configuration for a single provider.
type ProviderConfig struct {
	Type string `yaml:"type"`

	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// OutputSize is passed to the daily series endpoint: compact | full.
	OutputSize string `yaml:"outputsize"`
	// StatementPeriod selects annualReports or quarterlyReports.
	StatementPeriod string `yaml:"statement_period"`
	// Dir is the archive root for replaying providers.
	Dir string `yaml:"dir"`

	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
}

// Builder constructs a Client from configuration.
type Builder func(name string, cfg *ProviderConfig) (Client, error)

var (
	registry   = make(map[string]Builder)
	registryMu sync.RWMutex
)

// RegisterProvider registers a provider constructor under a type name.
func RegisterProvider(typeName string, builder Builder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupBuilder(typeName string) (Builder, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	builder, ok := registry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads provider configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open provider config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read provider config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal provider config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	if c.Default == "" && len(c.Providers) == 1 {
		for name := range c.Providers {
			c.Default = name
		}
	}
	for name, p := range c.Providers {
		if p == nil {
			p = &ProviderConfig{}
			c.Providers[name] = p
		}
		p.expandEnv()
		if err := p.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
	p.APIKey = strings.TrimSpace(os.ExpandEnv(p.APIKey))
	p.OutputSize = strings.ToLower(strings.TrimSpace(os.ExpandEnv(p.OutputSize)))
	p.StatementPeriod = strings.ToLower(strings.TrimSpace(os.ExpandEnv(p.StatementPeriod)))
	p.Dir = strings.TrimSpace(os.ExpandEnv(p.Dir))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	p.HTTPTimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.HTTPTimeoutRaw))
}

func (p *ProviderConfig) parseDurations(name string) error {
	if p.TimeoutRaw != "" {
		d, err := time.ParseDuration(p.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("provider %s: invalid timeout %q: %w", name, p.TimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("provider %s: timeout must be positive, got %s", name, d)
		}
		p.Timeout = d
	}
	if p.HTTPTimeoutRaw != "" {
		d, err := time.ParseDuration(p.HTTPTimeoutRaw)
		if err != nil {
			return fmt.Errorf("provider %s: invalid http_timeout %q: %w", name, p.HTTPTimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("provider %s: http_timeout must be positive, got %s", name, d)
		}
		p.HTTPTimeout = d
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("provider config: providers cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Providers[c.Default]; !ok {
			return fmt.Errorf("provider config: default provider %q not defined", c.Default)
		}
	}
	for name, p := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("provider config: provider name cannot be empty")
		}
		if err := p.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("provider config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("provider config: provider %s must specify type", name)
	}
	if _, ok := lookupBuilder(p.Type); !ok {
		return fmt.Errorf("provider config: provider %s has unsupported type %q", name, p.Type)
	}
	switch p.StatementPeriod {
	case "", "annual", "quarterly":
	default:
		return fmt.Errorf("provider config: provider %s statement_period must be annual|quarterly, got %q", name, p.StatementPeriod)
	}
	switch p.OutputSize {
	case "", "compact", "full":
	default:
		return fmt.Errorf("provider config: provider %s outputsize must be compact|full, got %q", name, p.OutputSize)
	}
	return nil
}

// BuildDefault instantiates only the default provider.
func (c *Config) BuildDefault() (Client, error) {
	if c.Default == "" {
		return nil, fmt.Errorf("provider config: no default provider")
	}
	pc := c.Providers[c.Default]
	builder, ok := lookupBuilder(pc.Type)
	if !ok {
		return nil, fmt.Errorf("provider %s: unsupported type %q", c.Default, pc.Type)
	}
	client, err := builder(c.Default, pc)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", c.Default, err)
	}
	return client, nil
}
