package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shah0006/syncd/config"
	"github.com/shah0006/syncd/eventbus"
	_ "github.com/shah0006/syncd/provider/localfs"
	"github.com/shah0006/syncd/store"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("mode: local\nlocal_path: "+root+"\n"), 0o644))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	s := New(cfg, cfgPath, config.Credentials{}, filepath.Join(t.TempDir(), "credentials.yaml"), st, eventbus.New(), nil)
	return s, root
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)
	return w
}

func TestHandleStatusReportsEmptyState(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.ScanInProgress)
	require.Equal(t, "local", resp.Mode)
}

func TestHandleScanThenDelete(t *testing.T) {
	s, root := newTestServer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0o644))

	w := doRequest(t, s, http.MethodPost, "/scan", scanRequest{})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.scan.inProgress && s.scan.result != nil
	}, time.Second, 5*time.Millisecond)

	w = doRequest(t, s, http.MethodPost, "/delete", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := os.Stat(filepath.Join(root, "empty"))
	require.True(t, os.IsNotExist(err))
}

func TestHandleConfigGetAndPost(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodPost, "/config", map[string]any{"export_format": "csv"})
	require.Equal(t, http.StatusOK, w.Code)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Equal(t, "csv", s.cfg.ExportFormat)
}

func TestHandleCredentialsRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodPost, "/credentials", map[string]string{"s3_access_key": "abc"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/credentials", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp["keys"], "s3_access_key")
}

func TestAuthMiddlewareRejectsMissingBearerToken(t *testing.T) {
	s, _ := newTestServer(t)
	s.jwtSecret = []byte("secret")
	w := doRequest(t, s, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCompareWithoutStartReturnsFatal(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodPost, "/compare/results", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "fatal", body.ErrorKind)
}
