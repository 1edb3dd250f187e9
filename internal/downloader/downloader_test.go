package downloader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-webanalyze/internal/detection"
	"github.com/mamamialezatoz/go-webanalyze/internal/models"
	"github.com/mamamialezatoz/go-webanalyze/internal/parser"
)

func newShardServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch {
		case r.URL.Path == "/categories.json":
			_, _ = w.Write([]byte(`{"1": {"name": "CMS", "priority": 1}}`))
		case r.URL.Path == "/technologies/w.json":
			_, _ = w.Write([]byte(`{"WordPress": {"cats": [1], "html": "wp-content"}}`))
		case r.URL.Path == "/technologies/_.json":
			_, _ = w.Write([]byte(`[{"name": "1C-Bitrix", "cats": [1]}]`))
		case strings.HasPrefix(r.URL.Path, "/technologies/"):
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(server *httptest.Server, path string) Config {
	cfg := DefaultConfig(path)
	cfg.BaseURL = server.URL + "/"
	cfg.Client = server.Client()
	return cfg
}

func TestUpdateWritesMergedDatabase(t *testing.T) {
	var requests atomic.Int64
	server := newShardServer(t, &requests)
	path := filepath.Join(t.TempDir(), "data", "technologies.json")

	updated, err := Update(context.Background(), testConfig(server, path))
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, int64(1+len(shards)), requests.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var db struct {
		Technologies map[string]json.RawMessage `json:"technologies"`
		Categories   map[string]json.RawMessage `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(data, &db))
	assert.Contains(t, db.Technologies, "WordPress")
	assert.Contains(t, db.Technologies, "1C-Bitrix")
	assert.Contains(t, db.Categories, "1")
}

// upstreamJQuery uses the webappanalyzer layout: scriptSrc holds script
// URL patterns and scripts holds inline script content patterns
const upstreamJQuery = `{
  "jQuery": {
    "cats": [59],
    "scriptSrc": ["jquery[.-]([\\d.]*\\d)[^/]*\\.js\\;version:\\1"],
    "scripts": ["jQuery v([\\d.]+)\\;version:\\1"],
    "website": "https://jquery.com"
  }
}`

func TestUpdateConvertsUpstreamScriptPatterns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/categories.json":
			_, _ = w.Write([]byte(`{"59": {"name": "JavaScript libraries"}}`))
		case "/technologies/j.json":
			_, _ = w.Write([]byte(upstreamJQuery))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "technologies.json")
	_, err := Update(context.Background(), testConfig(server, path))
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	def, err := parser.LoadDefinition(file)
	require.NoError(t, err)
	db, err := parser.CompileDefinition(def)
	require.NoError(t, err)
	analyzer := detection.NewAnalyzer(db, detection.Options{})

	matches := analyzer.Analyze(&models.FetchedPage{
		URL:  "http://example.com/",
		Body: `<script src="/js/jquery-3.6.0.min.js"></script>`,
	})
	require.Len(t, matches, 1)
	assert.Equal(t, "jQuery", matches[0].Technology)
	assert.Equal(t, "3.6.0", matches[0].Version)
	assert.Equal(t, []string{"JavaScript libraries"}, matches[0].Categories)

	matches = analyzer.Analyze(&models.FetchedPage{
		URL:  "http://example.com/",
		Body: `<script src="/static/jQuery v9.9.js"></script>`,
	})
	assert.Empty(t, matches)
}

func TestNormalizeTechnology(t *testing.T) {
	converted, err := normalizeTechnology(json.RawMessage(`{"scriptSrc": "a\\.js", "scripts": "inline", "html": "x"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"scripts": "a\\.js", "html": "x"}`, string(converted))

	converted, err = normalizeTechnology(json.RawMessage(`{"scripts": "inline"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(converted))

	_, err = normalizeTechnology(json.RawMessage(`[1]`))
	assert.Error(t, err)
}

func TestUpdateSkipsFreshFile(t *testing.T) {
	var requests atomic.Int64
	server := newShardServer(t, &requests)
	path := filepath.Join(t.TempDir(), "technologies.json")
	cfg := testConfig(server, path)

	_, err := Update(context.Background(), cfg)
	require.NoError(t, err)
	first := requests.Load()

	updated, err := Update(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, first, requests.Load())

	cfg.Force = true
	updated, err = Update(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Greater(t, requests.Load(), first)
}

func TestUpdateRefreshesExpiredFile(t *testing.T) {
	var requests atomic.Int64
	server := newShardServer(t, &requests)
	path := filepath.Join(t.TempDir(), "technologies.json")
	cfg := testConfig(server, path)

	_, err := Update(context.Background(), cfg)
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	updated, err := Update(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestUpdateFailureKeepsExistingFile(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	path := filepath.Join(t.TempDir(), "technologies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"technologies": {}}`), 0o644))

	cfg := testConfig(server, path)
	cfg.Force = true
	_, err := Update(context.Background(), cfg)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"technologies": {}}`, string(data))
}

func TestStatusAndClear(t *testing.T) {
	var requests atomic.Int64
	server := newShardServer(t, &requests)
	path := filepath.Join(t.TempDir(), "technologies.json")
	cfg := testConfig(server, path)

	status, err := GetStatus(cfg)
	require.NoError(t, err)
	assert.False(t, status.Exists)

	_, err = Update(context.Background(), cfg)
	require.NoError(t, err)

	status, err = GetStatus(cfg)
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.True(t, status.Fresh)
	assert.Equal(t, 2, status.Technologies)
	assert.Equal(t, 1, status.Categories)

	require.NoError(t, Clear(cfg))
	require.NoError(t, Clear(cfg))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDecodeObject(t *testing.T) {
	object, err := decodeObject([]byte(`[{"name": "A"}, {"name": ""}, {"other": 1}]`))
	require.NoError(t, err)
	assert.Len(t, object, 1)
	assert.Contains(t, object, "A")

	_, err = decodeObject([]byte(`"text"`))
	assert.Error(t, err)
}
