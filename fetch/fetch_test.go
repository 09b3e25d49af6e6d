package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serprank/config"
)

const page = `<html><body><div id="main_pack"><section class="sp_nreview">VIEW</section></div></body></html>`

func encoded(t *testing.T, encoding string) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		w := gzip.NewWriter(&buf)
		_, err := w.Write([]byte(page))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "br":
		w := brotli.NewWriter(&buf)
		_, err := w.Write([]byte(page))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "zstd":
		w, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write([]byte(page))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		buf.WriteString(page)
	}
	return buf.Bytes()
}

func TestCaptureDecodes(t *testing.T) {
	for _, enc := range []string{"", "gzip", "br", "zstd"} {
		t.Run("encoding="+enc, func(t *testing.T) {
			body := encoded(t, enc)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Language"), "ko-KR")
				if enc != "" {
					w.Header().Set("Content-Encoding", enc)
				}
				_, _ = w.Write(body)
			}))
			defer srv.Close()

			c := New(config.FetchConfig{Timeout: 5 * time.Second, UserAgent: "test"})
			snap, err := c.Capture(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, page, snap.HTML)
			assert.Equal(t, srv.URL, snap.URL)
			assert.Empty(t, snap.Elements)
		})
	}
}

func TestCaptureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(config.FetchConfig{Timeout: time.Second}).Capture(context.Background(), srv.URL)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
}
