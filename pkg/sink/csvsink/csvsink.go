// Package csvsink writes one delimited file per kind.
package csvsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"stocketl/pkg/provider"
	"stocketl/pkg/sink"
	"stocketl/pkg/table"
)

// DefaultFileNames maps each kind to its export file.
var DefaultFileNames = map[provider.Kind]string{
	provider.KindOverview:        "info.csv",
	provider.KindDailyPrices:     "prices.csv",
	provider.KindBalanceSheet:    "balance-sheet.csv",
	provider.KindIncomeStatement: "income-statement.csv",
}

// Sink exports tables to files under a directory, replacing any previous export.
type Sink struct {
	dir       string
	delimiter rune
	names     map[provider.Kind]string
}

// Option configures a Sink.
type Option func(*Sink)

// WithDelimiter sets the field separator.
func WithDelimiter(r rune) Option {
	return func(s *Sink) {
		if r != 0 {
			s.delimiter = r
		}
	}
}

// WithFileName overrides the file name of one kind.
func WithFileName(kind provider.Kind, name string) Option {
	return func(s *Sink) {
		if name != "" {
			s.names[kind] = name
		}
	}
}

// New constructs a file sink rooted at dir.
func New(dir string, opts ...Option) *Sink {
	s := &Sink{dir: dir, delimiter: ',', names: make(map[provider.Kind]string, len(DefaultFileNames))}
	for k, v := range DefaultFileNames {
		s.names[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the sink in logs and journals.
func (s *Sink) Name() string { return "csv" }

// Path returns the export file of a kind.
func (s *Sink) Path(kind provider.Kind) string {
	name, ok := s.names[kind]
	if !ok {
		name = kind.String() + ".csv"
	}
	return filepath.Join(s.dir, name)
}

// Write exports t with a header row. The file is written to a temporary name
// and renamed, so readers never observe a partial export.
func (s *Sink) Write(ctx context.Context, kind provider.Kind, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("csvsink: nil table for %s", kind)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("csvsink: create dir: %w", err)
	}
	target := s.Path(kind)
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(target)+"-*")
	if err != nil {
		return fmt.Errorf("csvsink: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.encode(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("csvsink: write %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csvsink: close %s: %w", kind, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("csvsink: chmod %s: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("csvsink: replace %s: %w", target, err)
	}
	return nil
}

func (s *Sink) encode(f *os.File, t *table.Table) error {
	w := csv.NewWriter(f)
	w.Comma = s.delimiter
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			record[i] = sink.FormatValue(row[c])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
