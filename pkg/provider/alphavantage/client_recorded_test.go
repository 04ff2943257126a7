package alphavantage

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/dnaeon/go-vcr/cassette"
	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocketl/pkg/normalize"
	"stocketl/pkg/provider"
)

// Records or replays a real OVERVIEW call. Skips unless the cassette exists or
// RECORD_CASSETTES=1. The api key is stripped before the cassette is saved.
func TestClient_FetchOverview_Recorded(t *testing.T) {
	name := filepath.Join("testdata", "cassettes", "alphavantage_overview")
	if _, err := os.Stat(name + ".yaml"); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s.yaml", name)
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	}

	r, err := recorder.New(name)
	require.NoError(t, err)
	defer func() { _ = r.Stop() }()
	r.AddFilter(func(i *cassette.Interaction) error {
		i.Request.URL = withoutKey(i.Request.URL)
		i.Request.Form.Del("apikey")
		return nil
	})
	r.SetMatcher(func(req *http.Request, i cassette.Request) bool {
		return req.Method == i.Method && withoutKey(req.URL.String()) == i.URL
	})

	key := os.Getenv("ALPHAVANTAGE_API_KEY")
	if key == "" {
		key = "demo"
	}
	client, err := NewClient(WithAPIKey(key), WithHTTPClient(&http.Client{Transport: r}))
	require.NoError(t, err)

	raw, err := client.Fetch(context.Background(), provider.KindOverview, "IBM")
	require.NoError(t, err)
	tbl, _, err := normalize.New().Normalize(provider.KindOverview, raw, 1)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "IBM", tbl.Rows[0]["Symbol"])
	assert.IsType(t, int64(0), tbl.Rows[0]["MarketCapitalization"])
}

func withoutKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Del("apikey")
	u.RawQuery = q.Encode()
	return u.String()
}
