package proxy

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestProxy(t *testing.T, upstream string) *Server {
	t.Helper()

	staticDir := t.TempDir()
	mediaDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "site.css"), []byte("body{color:red}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "room.jpg"), []byte("jpegdata"), 0o644))

	s, err := New(&Config{
		Upstream:  upstream,
		StaticDir: staticDir,
		MediaDir:  mediaDir,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestServesStaticAndMedia(t *testing.T) {
	s := newTestProxy(t, "http://127.0.0.1:0")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/site.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{color:red}", rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/room.jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/missing.css", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForwardsToUpstream(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/structures", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Forwarded-For"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer backend.Close()

	s := newTestProxy(t, backend.URL)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/structures", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestUpstreamDownReturnsBadGateway(t *testing.T) {
	s := newTestProxy(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/structures", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAccessLogForwardsFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	var w http.ResponseWriter = sr
	f, ok := w.(http.Flusher)
	require.True(t, ok)
	f.Flush()
	assert.True(t, rec.Flushed)
}

func TestGzipCompression(t *testing.T) {
	payload := strings.Repeat("compressible ", 200)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(payload))
	}))
	defer backend.Close()

	s := newTestProxy(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Less(t, rec.Body.Len(), len(payload))
}
