// Package normalize turns raw provider records into flat typed rows.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"stocketl/pkg/provider"
	"stocketl/pkg/table"
)

const (
	// IDColumn carries the internal security identifier on every row.
	IDColumn = "stock_id"
	// DateColumn carries the parsed series date on time-series rows.
	DateColumn = "date"
	// SeriesKey is the body key of the adjusted daily series response.
	SeriesKey = "Time Series (Daily)"

	annualReportsKey    = "annualReports"
	quarterlyReportsKey = "quarterlyReports"
)

// DefaultPlaceholders are the provider spellings of a missing value.
var DefaultPlaceholders = []string{"None", "-", ""}

var seriesPrefix = regexp.MustCompile(`^\d+\.\s*`)

// Normalizer applies per-kind schemas to raw records.
type Normalizer struct {
	schemas      map[provider.Kind]Schema
	placeholders map[string]struct{}
	reportsKey   string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithPlaceholders replaces the set of missing-value spellings.
func WithPlaceholders(values ...string) Option {
	return func(n *Normalizer) {
		n.placeholders = make(map[string]struct{}, len(values))
		for _, v := range values {
			n.placeholders[v] = struct{}{}
		}
	}
}

// WithStatementPeriod selects annual (default) or quarterly statement reports.
func WithStatementPeriod(period string) Option {
	return func(n *Normalizer) {
		if strings.EqualFold(strings.TrimSpace(period), "quarterly") {
			n.reportsKey = quarterlyReportsKey
		} else {
			n.reportsKey = annualReportsKey
		}
	}
}

// New constructs a Normalizer with the default schemas.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		schemas:    DefaultSchemas(),
		reportsKey: annualReportsKey,
	}
	WithPlaceholders(DefaultPlaceholders...)(n)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one raw record into rows tagged with id. Values that fail
// coercion stay as text and are returned as skips.
func (n *Normalizer) Normalize(kind provider.Kind, raw provider.RawRecord, id int64) (*table.Table, []CoercionSkip, error) {
	schema, ok := n.schemas[kind]
	if !ok {
		return nil, nil, provider.ErrUnknownKind
	}
	switch {
	case kind.IsTimeSeries():
		return n.series(kind, schema, raw, id)
	case kind.IsStatement():
		return n.statements(kind, schema, raw, id)
	default:
		return n.snapshot(kind, schema, raw, id)
	}
}

func (n *Normalizer) snapshot(kind provider.Kind, schema Schema, raw provider.RawRecord, id int64) (*table.Table, []CoercionSkip, error) {
	present := make(map[string]struct{}, len(raw))
	for k := range raw {
		if isDiagnosticKey(k) || k == IDColumn {
			continue
		}
		present[k] = struct{}{}
	}
	if len(present) == 0 {
		return nil, nil, &MalformedError{Kind: kind, Detail: diagnostic(raw)}
	}

	var skips []CoercionSkip
	columns := schema.Order(present)
	row := make(table.Row, len(columns)+1)
	for _, c := range columns {
		row[c] = n.coerce(c, raw[c], schema.TypeOf(c), &skips)
	}
	row[IDColumn] = id
	return table.FromRows(append(columns, IDColumn), []table.Row{row}), skips, nil
}

func (n *Normalizer) series(kind provider.Kind, schema Schema, raw provider.RawRecord, id int64) (*table.Table, []CoercionSkip, error) {
	body, ok := raw[SeriesKey].(map[string]any)
	if !ok {
		return nil, nil, &MalformedError{Kind: kind, Key: SeriesKey, Detail: diagnostic(raw)}
	}

	type dated struct {
		day time.Time
		row table.Row
	}
	var (
		skips   []CoercionSkip
		present = make(map[string]struct{})
		rows    = make([]dated, 0, len(body))
	)
	for key, v := range body {
		day, err := parseDate(strings.TrimSpace(key))
		if err != nil {
			return nil, nil, &MalformedError{Kind: kind, Key: key, Detail: "invalid series date"}
		}
		inner, ok := v.(map[string]any)
		if !ok {
			return nil, nil, &MalformedError{Kind: kind, Key: key, Detail: "series entry is not an object"}
		}
		row := make(table.Row, len(inner)+2)
		source := make(map[string]string, len(inner))
		for field, value := range inner {
			c := SeriesColumn(field)
			if prev, dup := source[c]; dup {
				return nil, nil, &MalformedError{Kind: kind, Key: key,
					Detail: fmt.Sprintf("fields %q and %q both map to column %q", prev, field, c)}
			}
			source[c] = field
			present[c] = struct{}{}
			row[c] = n.coerce(c, value, schema.TypeOf(c), &skips)
		}
		row[IDColumn] = id
		row[DateColumn] = day
		rows = append(rows, dated{day: day, row: row})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].day.After(rows[j].day) })

	columns := append(schema.Order(present), IDColumn, DateColumn)
	out := make([]table.Row, len(rows))
	for i, d := range rows {
		out[i] = d.row
	}
	return table.FromRows(columns, out), skips, nil
}

func (n *Normalizer) statements(kind provider.Kind, schema Schema, raw provider.RawRecord, id int64) (*table.Table, []CoercionSkip, error) {
	reports, ok := raw[n.reportsKey].([]any)
	if !ok {
		return nil, nil, &MalformedError{Kind: kind, Key: n.reportsKey, Detail: diagnostic(raw)}
	}

	var skips []CoercionSkip
	present := make(map[string]struct{})
	rows := make([]table.Row, 0, len(reports))
	for _, item := range reports {
		report, ok := item.(map[string]any)
		if !ok {
			return nil, nil, &MalformedError{Kind: kind, Key: n.reportsKey, Detail: "report is not an object"}
		}
		row := make(table.Row, len(report)+1)
		for field, value := range report {
			present[field] = struct{}{}
			row[field] = n.coerce(field, value, schema.TypeOf(field), &skips)
		}
		row[IDColumn] = id
		rows = append(rows, row)
	}
	return table.FromRows(append(schema.Order(present), IDColumn), rows), skips, nil
}

// SeriesColumn maps a series field such as "5. adjusted close" to "adjusted_close".
func SeriesColumn(field string) string {
	name := seriesPrefix.ReplaceAllString(strings.TrimSpace(field), "")
	return strings.Join(strings.Fields(name), "_")
}

func isDiagnosticKey(k string) bool {
	for _, d := range diagnosticKeys {
		if k == d {
			return true
		}
	}
	return false
}
