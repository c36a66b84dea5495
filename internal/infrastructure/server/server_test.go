package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livebox/internal/infrastructure/config"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Sandbox.PoolSize = 1
	cfg.Sandbox.Debounce = config.Duration(time.Millisecond)
	cfg.Sandbox.MaxWait = config.Duration(10 * time.Millisecond)
	cfg.RateLimit.Enabled = false
	cfg.Logging.Level = "error"
	return cfg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServerRoutes(t *testing.T) {
	srv, err := NewServer(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	w := get(t, srv.Handler(), "/api/workspace")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bundle")

	w = get(t, srv.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "livebox_")

	w = get(t, srv.Handler(), "/metrics/json")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, srv.Handler(), "/debug/traces?limit=5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	w = get(t, srv.Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "engine is not running yet")
}

func TestServerRunsStarterDocument(t *testing.T) {
	srv, err := NewServer(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := srv.Engine().Current()
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	srv.Store().SetFragment(types.FragmentScript, "console.log('edited')")
	require.Eventually(t, func() bool {
		for _, e := range srv.Store().Console().Entries() {
			if strings.Contains(e.Message, "edited") {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerWithSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "livebox.db")

	srv, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/snippets", strings.NewReader(`{"name":"first"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = get(t, srv.Handler(), "/api/snippets")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "first")
}
