package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytes(t *testing.T) {
	t.Setenv("SERPRANK_SECRET", "s3cret")

	cfg, err := LoadFromBytes([]byte(`
server:
  addr: ":9090"
browser:
  max_size: 4
  timeout: 60s
throttle:
  keyword_jitter_min: 1s
  keyword_jitter_max: 3s
thresholds:
  blue_margin: 30
estimate:
  window_days: 7
search_api:
  client_id: abc
  client_secret: ${SERPRANK_SECRET}
log:
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Browser.MaxSize)
	assert.Equal(t, 2, cfg.Browser.MinSize)
	assert.Equal(t, 60*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 800*time.Millisecond, cfg.Throttle.SameKeywordDelay)
	assert.Equal(t, time.Second, cfg.Throttle.KeywordJitterMin)
	assert.Equal(t, 30, cfg.Thresholds.BlueMargin)
	assert.Equal(t, 30, cfg.Thresholds.MaxDepth)
	assert.Equal(t, 7.0, cfg.Estimate.WindowDays)
	assert.Equal(t, 100, cfg.Estimate.FullSample)
	assert.Equal(t, "s3cret", cfg.SearchAPI.ClientSecret)
	assert.Equal(t, "#main_pack, #ct", cfg.Segmenter.Main)
}

func TestLoadFromBytesInvalid(t *testing.T) {
	_, err := LoadFromBytes(nil)
	assert.Error(t, err)

	_, err = LoadFromBytes([]byte("server: ["))
	assert.Error(t, err)

	_, err = LoadFromBytes([]byte(`
browser:
  min_size: 8
  max_size: 2
throttle:
  keyword_jitter_min: 5s
  keyword_jitter_max: 1s
log:
  format: xml
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser")
	assert.Contains(t, err.Error(), "throttle")
	assert.Contains(t, err.Error(), "log")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serprank.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  path: /tmp/h.db\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/h.db", cfg.History.Path)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestSearchURL(t *testing.T) {
	raw, err := SearchURL("pc", "integrated", "부천 치아교정")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "search.naver.com", u.Host)
	assert.Equal(t, "nexearch", u.Query().Get("where"))
	assert.Equal(t, "부천 치아교정", u.Query().Get("query"))

	raw, err = SearchURL("mobile", "blog", "치과")
	require.NoError(t, err)
	u, err = url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "m.search.naver.com", u.Host)
	assert.Equal(t, "m_blog", u.Query().Get("where"))

	_, err = SearchURL("tablet", "blog", "치과")
	assert.Error(t, err)
	_, err = SearchURL("pc", "shorts", "치과")
	assert.Error(t, err)

	assert.Equal(t, []string{"mobile", "pc"}, Devices())
}
