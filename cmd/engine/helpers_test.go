package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpulse-engine/internal/config"
)

func TestShutdownHandler(t *testing.T) {
	var stopped atomic.Int32
	h := shutdownHandler("tok", func() { stopped.Add(1) })

	cases := []struct {
		name   string
		method string
		remote string
		token  string
		want   int
	}{
		{"wrong method", http.MethodGet, "127.0.0.1:5000", "tok", http.StatusMethodNotAllowed},
		{"remote caller", http.MethodPost, "192.0.2.10:5000", "tok", http.StatusForbidden},
		{"missing token", http.MethodPost, "127.0.0.1:5000", "", http.StatusUnauthorized},
		{"wrong token", http.MethodPost, "[::1]:5000", "nope", http.StatusUnauthorized},
		{"ok", http.MethodPost, "[::1]:5000", "tok", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/shutdown", nil)
			req.RemoteAddr = tc.remote
			if tc.token != "" {
				req.Header.Set("X-Shutdown-Token", tc.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	require.Eventually(t, func() bool { return stopped.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path, err := config.EnsureUserConfig(dir)
	require.NoError(t, err)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().App.Port, cfg.App.Port)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("app:\n  port: 0\n"), 0o644))
	_, err = loadConfig(bad)
	assert.ErrorContains(t, err, "app.port")
}

func TestEnvOr(t *testing.T) {
	t.Setenv("JOBPULSE_TEST_VAR", "  ")
	assert.Equal(t, "def", envOr("JOBPULSE_TEST_VAR", "def"))
	t.Setenv("JOBPULSE_TEST_VAR", "debug")
	assert.Equal(t, "debug", envOr("JOBPULSE_TEST_VAR", "def"))
}
