package sqlsink

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // register mysql driver
	"github.com/guregu/null/v6"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/lib/pq"
	_ "modernc.org/sqlite" // register sqlite driver

	"stocketl/pkg/table"
)

// Dialect captures the per-database differences of the replace export.
type Dialect struct {
	name          string
	driver        string
	defaultSchema string
	maxParams     int
	quote         func(string) string
	placeholder   func(n int) string
	columnType    func(table.ColumnType) string
	dateArg       func(time.Time) any
}

// Name is the configured dialect name.
func (d Dialect) Name() string { return d.name }

// Driver is the database/sql driver the dialect opens.
func (d Dialect) Driver() string { return d.driver }

// Quote quotes one identifier.
func (d Dialect) Quote(ident string) string { return d.quote(ident) }

// Qualified returns the quoted, optionally schema-qualified relation name.
func (d Dialect) Qualified(schema, relation string) string {
	if schema == "" {
		return d.quote(relation)
	}
	return d.quote(schema) + "." + d.quote(relation)
}

var postgres = Dialect{
	name:          "postgres",
	driver:        "pgx",
	defaultSchema: "public",
	maxParams:     65535,
	quote:         pq.QuoteIdentifier,
	placeholder:   func(n int) string { return "$" + strconv.Itoa(n) },
	columnType: func(t table.ColumnType) string {
		switch t {
		case table.TypeInt:
			return "BIGINT"
		case table.TypeFloat:
			return "DOUBLE PRECISION"
		case table.TypeDate:
			return "DATE"
		default:
			return "TEXT"
		}
	},
	dateArg: func(t time.Time) any { return null.TimeFrom(t) },
}

var mysql = Dialect{
	name:        "mysql",
	driver:      "mysql",
	maxParams:   65535,
	quote:       func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
	placeholder: func(int) string { return "?" },
	columnType: func(t table.ColumnType) string {
		switch t {
		case table.TypeInt:
			return "BIGINT"
		case table.TypeFloat:
			return "DOUBLE"
		case table.TypeDate:
			return "DATE"
		default:
			return "TEXT"
		}
	},
	dateArg: func(t time.Time) any { return null.TimeFrom(t) },
}

var sqlite = Dialect{
	name:        "sqlite",
	driver:      "sqlite",
	maxParams:   32766,
	quote:       func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
	placeholder: func(int) string { return "?" },
	columnType: func(t table.ColumnType) string {
		switch t {
		case table.TypeInt:
			return "INTEGER"
		case table.TypeFloat:
			return "REAL"
		default:
			return "TEXT"
		}
	},
	// sqlite has no date type; ISO text keeps ordering and comparisons intact.
	dateArg: func(t time.Time) any { return null.StringFrom(t.UTC().Format("2006-01-02")) },
}

// LookupDialect resolves a dialect by name.
func LookupDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx", "pg":
		return postgres, nil
	case "mysql":
		return mysql, nil
	case "sqlite", "sqlite3":
		return sqlite, nil
	default:
		return Dialect{}, fmt.Errorf("sqlsink: unsupported dialect %q", name)
	}
}
