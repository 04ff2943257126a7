package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocketl/internal/config"
	"stocketl/pkg/confkit"
	"stocketl/pkg/provider"
)

func TestConfigSummaryLines(t *testing.T) {
	cfg := &config.Config{
		Env:      "dev",
		Universe: []config.Security{{Symbol: "IBM", ID: 1}, {Symbol: "GOOG", ID: 2}},
		Pacing:   config.PacingConf{KindDelay: 0, RequestsPerMinute: 5, Burst: 1},
		Schedule: "22 12 * * *",
		Export:   config.ExportConf{Dir: "/data/out"},
		Database: config.DatabaseConf{Dialect: "postgres"},
		Provider: confkit.Section[provider.Config]{File: "/etc/provider.yaml", Value: &provider.Config{}},
	}

	lines := ConfigSummaryLines(cfg)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines, "Universe: IBM:1, GOOG:2")
	assert.Contains(t, lines, "On security error: abort")
	assert.Contains(t, lines, "Pacing: kind delay 0s, 5 req/min (burst 1)")
	assert.Contains(t, lines, "CSV export: /data/out")
	assert.Contains(t, lines, "Database (postgres): not configured")
	assert.Contains(t, lines, "Journal: not configured")
	assert.Contains(t, lines, "Provider config: /etc/provider.yaml")
}

func TestConfigSummaryNil(t *testing.T) {
	assert.Equal(t, []string{"Configuration: <nil>"}, ConfigSummaryLines(nil))
}
