package sqlsink

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocketl/pkg/provider"
	"stocketl/pkg/table"
)

func openSqlite(t *testing.T) (*Sink, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stock.db")
	s, err := Open("sqlite", path)
	require.NoError(t, err)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return s, db
}

func prices(n int) *table.Table {
	rows := make([]table.Row, 0, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rows = append(rows, table.Row{
			"open":     10.5 + float64(i),
			"close":    nil,
			"stock_id": int64(1),
			"date":     start.AddDate(0, 0, n-i),
		})
	}
	return table.FromRows([]string{"open", "close", "stock_id", "date"}, rows)
}

func TestWriteReplacesTable(t *testing.T) {
	s, db := openSqlite(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, provider.KindDailyPrices, prices(5)))
	require.NoError(t, s.Write(ctx, provider.KindDailyPrices, prices(3)))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "stock_prices"`).Scan(&count))
	assert.Equal(t, 3, count)

	var (
		open    null.Float
		closeV  null.Float
		stockID null.Int
		date    null.String
	)
	require.NoError(t, db.QueryRow(`SELECT "open", "close", "stock_id", "date" FROM "stock_prices" ORDER BY "date" DESC LIMIT 1`).
		Scan(&open, &closeV, &stockID, &date))
	assert.Equal(t, 10.5, open.Float64)
	assert.False(t, closeV.Valid)
	assert.Equal(t, int64(1), stockID.Int64)
	assert.Equal(t, "2024-01-04", date.String)
}

func TestWriteBatchesRows(t *testing.T) {
	s, db := openSqlite(t)
	s.batchRows = 2

	require.NoError(t, s.Write(context.Background(), provider.KindDailyPrices, prices(7)))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "stock_prices"`).Scan(&count))
	assert.Equal(t, 7, count)
}

func TestWriteTextAndMixedColumns(t *testing.T) {
	s, db := openSqlite(t)
	tbl := table.FromRows([]string{"Name", "EBITDA", "stock_id"}, []table.Row{
		{"Name": "Acme Co", "EBITDA": int64(100), "stock_id": int64(1)},
		{"Name": nil, "EBITDA": "n/a", "stock_id": int64(2)},
	})

	require.NoError(t, s.Write(context.Background(), provider.KindOverview, tbl))

	rows, err := db.Query(`SELECT "Name", "EBITDA" FROM "stock_info" ORDER BY "stock_id"`)
	require.NoError(t, err)
	defer rows.Close()
	var got [][2]null.String
	for rows.Next() {
		var pair [2]null.String
		require.NoError(t, rows.Scan(&pair[0], &pair[1]))
		got = append(got, pair)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)
	assert.Equal(t, "Acme Co", got[0][0].String)
	assert.Equal(t, "100", got[0][1].String)
	assert.False(t, got[1][0].Valid)
	assert.Equal(t, "n/a", got[1][1].String)
}

func TestRelationOverride(t *testing.T) {
	s, db := openSqlite(t)
	s = New(s.conn, sqlite, WithRelation(provider.KindDailyPrices, "daily_px"), WithSchema("ignored"))

	require.NoError(t, s.Write(context.Background(), provider.KindDailyPrices, prices(1)))
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "daily_px"`).Scan(&count))
	assert.Equal(t, 1, count)
	assert.Equal(t, "sql:sqlite", s.Name())
}

func TestPostgresStatements(t *testing.T) {
	s := New(nil, postgres)
	rel := s.dialect.Qualified(s.schema, s.Relation(provider.KindDailyPrices))
	assert.Equal(t, `"public"."stock_prices"`, rel)

	tbl := prices(2)
	cols := s.columns(tbl)
	assert.Equal(t,
		`CREATE TABLE "public"."stock_prices" ("open" DOUBLE PRECISION, "close" TEXT, "stock_id" BIGINT, "date" DATE)`,
		s.createStmt(rel, cols))

	stmt, args := s.insertStmt(rel, cols, tbl.Rows)
	assert.Equal(t,
		`INSERT INTO "public"."stock_prices" ("open", "close", "stock_id", "date") VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)`,
		stmt)
	require.Len(t, args, 8)
	assert.Equal(t, null.FloatFrom(10.5), args[0])
	assert.Equal(t, null.String{}, args[1])
	assert.Equal(t, null.IntFrom(1), args[2])
	assert.Equal(t, null.TimeFrom(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)), args[3])
}

func TestMySQLQuoting(t *testing.T) {
	s := New(nil, mysql, WithSchema("stockdb"))
	assert.Equal(t, "`stockdb`.`stock_info`", s.dialect.Qualified(s.schema, s.Relation(provider.KindOverview)))
	assert.Equal(t, "`we``ird`", s.dialect.Quote("we`ird"))
}

func TestBatchSizeRespectsParamLimit(t *testing.T) {
	s := New(nil, sqlite, WithBatchRows(10000))
	assert.Equal(t, 32766/50, s.batchSize(50))
	assert.Equal(t, 10000, s.batchSize(2))
}

func TestLookupDialect(t *testing.T) {
	for _, name := range []string{"postgres", "PostgreSQL", "mysql", "sqlite3"} {
		_, err := LookupDialect(name)
		assert.NoError(t, err, name)
	}
	_, err := LookupDialect("oracle")
	assert.Error(t, err)
	_, err = Open("postgres", " ")
	assert.Error(t, err)
}
