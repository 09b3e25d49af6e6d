package browser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serprank/config"
	"serprank/logging"
)

func TestToVisibleElements(t *testing.T) {
	var raw []rawElement
	require.NoError(t, json.Unmarshal([]byte(`[
		{"text":" 부천 치아교정 후기 ","x":20,"y":100,"fontSize":"17px","fontWeight":"700","color":"rgb(0, 104, 195)","href":"https://blog.naver.com/a/1","visible":true},
		{"text":"3일 전","x":20,"y":140,"fontSize":"13px","fontWeight":"400","color":"rgb(118, 128, 150)","href":"","visible":true}
	]`), &raw))

	got := toVisibleElements(raw, 40)
	require.Len(t, got, 2)

	assert.Equal(t, "부천 치아교정 후기", got[0].Text)
	assert.Equal(t, 17.0, got[0].FontSize)
	assert.True(t, got[0].IsBold)
	assert.True(t, got[0].ColorIsBlue)
	assert.True(t, got[0].HasHref)

	assert.False(t, got[1].ColorIsBlue)
	assert.False(t, got[1].HasHref)
	assert.Equal(t, 140.0, got[1].Y)
}

func TestIsMobileURL(t *testing.T) {
	assert.True(t, isMobileURL("https://m.search.naver.com/search.naver?query=a"))
	assert.False(t, isMobileURL("https://search.naver.com/search.naver?query=a"))
	assert.False(t, isMobileURL("://bad"))
}

func TestNewClampsSizes(t *testing.T) {
	p := New(config.BrowserConfig{MinSize: 5, MaxSize: 0}, logging.Discard(), WithBlueMargin(25))
	assert.Equal(t, 1, p.cfg.MaxSize)
	assert.Equal(t, 1, p.cfg.MinSize)
	assert.Equal(t, 25, p.blueMargin)

	size, idle, waiting := p.Stats()
	assert.Zero(t, size+idle+waiting)

	// shutting down a pool that never started is a no-op
	p.Shutdown()
}
