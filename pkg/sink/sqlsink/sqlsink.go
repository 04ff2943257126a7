// Package sqlsink replaces one relation per kind with the latest table.
package sqlsink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"stocketl/pkg/provider"
	"stocketl/pkg/sink"
	"stocketl/pkg/table"
)

const defaultBatchRows = 500

// DefaultRelations maps each kind to its table name.
var DefaultRelations = map[provider.Kind]string{
	provider.KindOverview:        "stock_info",
	provider.KindDailyPrices:     "stock_prices",
	provider.KindBalanceSheet:    "balance_sheet",
	provider.KindIncomeStatement: "income_statement",
}

// Sink performs full-replace exports over a go-zero SqlConn.
type Sink struct {
	conn      sqlx.SqlConn
	dialect   Dialect
	schema    string
	relations map[provider.Kind]string
	batchRows int
}

// Option configures a Sink.
type Option func(*Sink)

// WithSchema sets the schema (postgres) or database (mysql) qualifier.
func WithSchema(schema string) Option {
	return func(s *Sink) {
		if schema = strings.TrimSpace(schema); schema != "" {
			s.schema = schema
		}
	}
}

// WithRelation overrides the table name of one kind.
func WithRelation(kind provider.Kind, name string) Option {
	return func(s *Sink) {
		if name = strings.TrimSpace(name); name != "" {
			s.relations[kind] = name
		}
	}
}

// WithBatchRows sets how many rows go into one INSERT statement.
func WithBatchRows(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.batchRows = n
		}
	}
}

// Open connects to dsn using the named dialect.
func Open(dialect, dsn string, opts ...Option) (*Sink, error) {
	d, err := LookupDialect(dialect)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlsink: empty dsn for %s", d.name)
	}
	return New(sqlx.NewSqlConn(d.Driver(), dsn), d, opts...), nil
}

// New wraps an existing connection.
func New(conn sqlx.SqlConn, d Dialect, opts ...Option) *Sink {
	s := &Sink{
		conn:      conn,
		dialect:   d,
		schema:    d.defaultSchema,
		relations: make(map[provider.Kind]string, len(DefaultRelations)),
		batchRows: defaultBatchRows,
	}
	for k, v := range DefaultRelations {
		s.relations[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	if d.name == sqlite.name {
		s.schema = ""
	}
	return s
}

// Name identifies the sink in logs and journals.
func (s *Sink) Name() string { return "sql:" + s.dialect.name }

// Relation returns the unquoted table name of a kind.
func (s *Sink) Relation(kind provider.Kind) string {
	if name, ok := s.relations[kind]; ok {
		return name
	}
	return strings.ReplaceAll(kind.String(), "-", "_")
}

// Write drops and recreates the kind's relation and loads every row, inside one transaction.
func (s *Sink) Write(ctx context.Context, kind provider.Kind, t *table.Table) error {
	if t == nil {
		return fmt.Errorf("sqlsink: nil table for %s", kind)
	}
	rel := s.dialect.Qualified(s.schema, s.Relation(kind))
	cols := s.columns(t)

	err := s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		if _, err := session.ExecCtx(ctx, "DROP TABLE IF EXISTS "+rel); err != nil {
			return fmt.Errorf("drop %s: %w", rel, err)
		}
		if _, err := session.ExecCtx(ctx, s.createStmt(rel, cols)); err != nil {
			return fmt.Errorf("create %s: %w", rel, err)
		}
		batch := s.batchSize(len(cols))
		for start := 0; start < len(t.Rows); start += batch {
			end := min(start+batch, len(t.Rows))
			stmt, args := s.insertStmt(rel, cols, t.Rows[start:end])
			if _, err := session.ExecCtx(ctx, stmt, args...); err != nil {
				return fmt.Errorf("insert %s rows %d-%d: %w", rel, start, end, err)
			}
		}
		return nil
	})
	if err != nil {
		logx.WithContext(ctx).Errorf("sqlsink: replace %s failed: %v", rel, err)
		return fmt.Errorf("sqlsink: %w", err)
	}
	return nil
}

type column struct {
	name string
	typ  table.ColumnType
}

func (s *Sink) columns(t *table.Table) []column {
	if len(t.Columns) == 0 {
		return []column{{name: "stock_id", typ: table.TypeInt}}
	}
	cols := make([]column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = column{name: c, typ: t.InferType(c)}
	}
	return cols
}

func (s *Sink) createStmt(rel string, cols []column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = s.dialect.Quote(c.name) + " " + s.dialect.columnType(c.typ)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", rel, strings.Join(defs, ", "))
}

func (s *Sink) batchSize(ncols int) int {
	batch := s.batchRows
	if ncols > 0 && batch*ncols > s.dialect.maxParams {
		batch = s.dialect.maxParams / ncols
	}
	return max(batch, 1)
}

func (s *Sink) insertStmt(rel string, cols []column, rows []table.Row) (string, []any) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = s.dialect.Quote(c.name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", rel, strings.Join(names, ", "))

	args := make([]any, 0, len(rows)*len(cols))
	n := 0
	for r, row := range rows {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for i, c := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			n++
			b.WriteString(s.dialect.placeholder(n))
			args = append(args, s.arg(c.typ, row[c.name]))
		}
		b.WriteByte(')')
	}
	return b.String(), args
}

// arg converts a cell into a typed nullable argument matching the column type.
func (s *Sink) arg(typ table.ColumnType, v any) any {
	switch typ {
	case table.TypeInt:
		switch x := v.(type) {
		case int64:
			return null.IntFrom(x)
		case int:
			return null.IntFrom(int64(x))
		}
		return null.Int{}
	case table.TypeFloat:
		switch x := v.(type) {
		case float64:
			return null.FloatFrom(x)
		case int64:
			return null.FloatFrom(float64(x))
		case int:
			return null.FloatFrom(float64(x))
		}
		return null.Float{}
	case table.TypeDate:
		if t, ok := v.(time.Time); ok {
			return s.dialect.dateArg(t)
		}
		return null.Time{}
	default:
		if v == nil {
			return null.String{}
		}
		return null.StringFrom(sink.FormatValue(v))
	}
}
