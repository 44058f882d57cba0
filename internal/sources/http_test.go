package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osint-platform/internal/federation"
	"osint-platform/pkg/config"
	"osint-platform/pkg/errors"
	"osint-platform/pkg/secrets"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_OpenSanctions(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/default", r.URL.Path)
		assert.Equal(t, "Viktor Petrov", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "Person", r.URL.Query().Get("schema"))
		assert.Equal(t, "ApiKey k-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"results":[
			{"id":"NK-1","caption":"Viktor Petrov","schema":"Person","score":0.92,
			 "properties":{"alias":["V. Petrov"],"topics":["sanction"]},"datasets":["us_ofac_sdn"]},
			{"id":"NK-2","caption":"","schema":"Person"}
		]}`))
	})
	src := NewHTTPSource("opensanctions", Builtin["opensanctions"], HTTPOptions{BaseURL: srv.URL, APIKey: "k-123", Now: func() time.Time { return fixedNow }})
	recs, err := src.Query(context.Background(), federation.Query{Text: "Viktor Petrov", Kind: "Person", Limit: 5})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "opensanctions:NK-1", r.ID)
	assert.Equal(t, "Person", r.Schema)
	assert.InDelta(t, 0.92, r.Confidence, 1e-9)
	assert.Equal(t, []string{"V. Petrov"}, r.Properties["alias"])
	assert.True(t, r.HasTopic("sanction"))
	assert.Equal(t, []string{"us_ofac_sdn"}, r.Properties["datasets"])
	assert.Equal(t, fixedNow, r.RetrievedAt)
	assert.Contains(t, src.Tags(), federation.TagSanctions)
}

func TestHTTPSource_OpenCorporatesNestedResults(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("api_token"))
		_, _ = w.Write([]byte(`{"results":{"companies":[
			{"company":{"name":"Acme Holdings Ltd","company_number":"0123","jurisdiction_code":"gb",
			 "opencorporates_url":"https://oc/gb/0123","registered_address_in_full":"1 High St"}}
		]}}`))
	})
	src := NewHTTPSource("opencorporates", Builtin["opencorporates"], HTTPOptions{BaseURL: srv.URL, APIKey: "tok"})
	recs, err := src.Query(context.Background(), federation.Query{Text: "Acme", Limit: 3})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Company", recs[0].Schema)
	assert.Equal(t, "0123", recs[0].First("companyNumber"))
	assert.Equal(t, "gb", recs[0].First("jurisdiction"))
	assert.InDelta(t, 0.85, recs[0].Confidence, 1e-9)
}

func TestHTTPSource_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   errors.Code
	}{
		{"429", http.StatusTooManyRequests, `{}`, errors.CodeRateLimited},
		{"401", http.StatusUnauthorized, `{}`, errors.CodeSourceUnavailable},
		{"500", http.StatusInternalServerError, `{}`, errors.CodeSourceUnavailable},
		{"malformed", http.StatusOK, `{"results": [`, errors.CodeSourceUnavailable},
		{"not array", http.StatusOK, `{"results": {"a": 1}}`, errors.CodeSourceUnavailable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				_, _ = w.Write([]byte(c.body))
			})
			src := NewHTTPSource("opensanctions", Builtin["opensanctions"], HTTPOptions{BaseURL: srv.URL})
			_, err := src.Query(context.Background(), federation.Query{Text: "x"})
			require.Error(t, err)
			assert.Equal(t, c.want, errors.CodeOf(err))
		})
	}
}

func TestHTTPSource_EmptyResults(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"articles": []}`))
	})
	src := NewHTTPSource("gdelt", Builtin["gdelt"], HTTPOptions{BaseURL: srv.URL})
	recs, err := src.Query(context.Background(), federation.Query{Text: "acme"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestHTTPSource_ContextDeadline(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	src := NewHTTPSource("gleif", Builtin["gleif"], HTTPOptions{BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := src.Query(ctx, federation.Query{Text: "acme"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeTimeout, errors.CodeOf(err))
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "watchlist.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(`
tags: [sanctions]
records:
  - id: W1
    schema: Person
    name: Viktor Petrov
`), 0o644))

	cfg := config.Default()
	cfg.Sources = map[string]config.SourceConfig{
		"watchlist":      {Enabled: true, Kind: "static", Fixture: fixture},
		"opencorporates": {Enabled: true, APIKey: "secret:oc_key", MonthlyLimit: 200},
		"gdelt":          {Enabled: false},
	}
	store := secrets.NewMemoryStore(nil)
	require.NoError(t, store.Set(context.Background(), "oc_key", "tok"))

	adapters, err := Build(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	require.Len(t, adapters, 2)
	assert.Equal(t, "opencorporates", adapters[0].Name())
	assert.Equal(t, 200, adapters[0].Policy().MonthlyLimit)
	assert.Equal(t, cfg.Federation.CacheTTL, adapters[0].Policy().CacheTTL)
	assert.Equal(t, "watchlist", adapters[1].Name())

	cfg.Sources = map[string]config.SourceConfig{"nowhere": {Enabled: true}}
	_, err = Build(context.Background(), cfg, store, nil)
	assert.Error(t, err)
}
