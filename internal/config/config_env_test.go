package config_test

import (
	"testing"

	"stocketl/internal/config"
)

func TestDatabaseDSNFromEnvironment(t *testing.T) {
	path := writeFiles(t, `
Universe:
  - Symbol: NVDA
    ID: 3
Database:
  DSN: ${STOCKETL_TEST_DSN}
Provider:
  File: provider.yaml
`)
	t.Setenv("STOCKETL_TEST_DSN", "postgres://etl@localhost:5432/stockdb?sslmode=disable")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Database.DSN != "postgres://etl@localhost:5432/stockdb?sslmode=disable" {
		t.Fatalf("dsn not expanded: %q", cfg.Database.DSN)
	}
}
