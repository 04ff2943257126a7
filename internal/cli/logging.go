package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"stocketl/internal/config"
	"stocketl/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	symbols := make([]string, 0, len(cfg.Universe))
	for _, s := range cfg.Universe {
		symbols = append(symbols, fmt.Sprintf("%s:%d", s.Symbol, s.ID))
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Universe: %s", strings.Join(symbols, ", ")),
		fmt.Sprintf("Kinds: %v", cfg.ParsedKinds()),
		fmt.Sprintf("On security error: %s", cfg.FailurePolicy()),
		fmt.Sprintf("Pacing: kind delay %s, %s", cfg.Pacing.KindDelay, budgetLine(cfg.Pacing)),
		fmt.Sprintf("Schedule: %s", cfg.Schedule),
		dirLine("CSV export", cfg.Export.Dir),
		fmt.Sprintf("Database (%s): %s", cfg.Database.Dialect, presence(cfg.Database.DSN != "")),
		dirLine("Journal", cfg.Journal.Dir),
		dirLine("Archive", cfg.Archive.Dir),
		sectionLine("Provider config", cfg.Provider),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func budgetLine(p config.PacingConf) string {
	if p.RequestsPerMinute <= 0 {
		return "no request cap"
	}
	return fmt.Sprintf("%d req/min (burst %d)", p.RequestsPerMinute, p.Burst)
}

func dirLine(name, dir string) string {
	if strings.TrimSpace(dir) == "" {
		return fmt.Sprintf("%s: not configured", name)
	}
	return fmt.Sprintf("%s: %s", name, dir)
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
