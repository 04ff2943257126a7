package csvsink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocketl/pkg/provider"
	"stocketl/pkg/table"
)

func pricesTable() *table.Table {
	return table.FromRows([]string{"open", "close", "stock_id", "date"}, []table.Row{
		{"open": 10.5, "close": 11.0, "stock_id": int64(1), "date": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"open": 10.5, "close": nil, "stock_id": int64(1), "date": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
}

func TestWriteHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.Write(context.Background(), provider.KindDailyPrices, pricesTable()))

	data, err := os.ReadFile(filepath.Join(dir, "prices.csv"))
	require.NoError(t, err)
	want := "open,close,stock_id,date\n" +
		"10.5,11.0,1,2024-01-02\n" +
		"10.5,,1,2024-01-01\n"
	assert.Equal(t, want, string(data))
}

func TestWriteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, provider.KindDailyPrices, pricesTable()))
	first, err := os.ReadFile(s.Path(provider.KindDailyPrices))
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, provider.KindDailyPrices, pricesTable()))
	second, err := os.ReadFile(s.Path(provider.KindDailyPrices))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not linger")
}

func TestWriteOverwrites(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, WithDelimiter(';'), WithFileName(provider.KindOverview, "companies.csv"))
	ctx := context.Background()

	big := table.FromRows([]string{"Name", "stock_id"}, []table.Row{
		{"Name": "Acme; Co", "stock_id": int64(1)},
		{"Name": "Other", "stock_id": int64(2)},
	})
	small := table.FromRows([]string{"Name", "stock_id"}, []table.Row{{"Name": "Solo", "stock_id": int64(9)}})

	require.NoError(t, s.Write(ctx, provider.KindOverview, big))
	require.NoError(t, s.Write(ctx, provider.KindOverview, small))

	data, err := os.ReadFile(filepath.Join(dir, "companies.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Name;stock_id\nSolo;9\n", string(data))
}

func TestWriteQuotesDelimiter(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	tbl := table.FromRows([]string{"Name"}, []table.Row{{"Name": "Acme, Co"}})

	require.NoError(t, s.Write(context.Background(), provider.KindOverview, tbl))
	data, err := os.ReadFile(s.Path(provider.KindOverview))
	require.NoError(t, err)
	assert.Equal(t, "Name\n\"Acme, Co\"\n", string(data))
}

func TestWriteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(t.TempDir()).Write(ctx, provider.KindOverview, pricesTable())
	assert.ErrorIs(t, err, context.Canceled)
}
