package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus Status

func (f fixedStatus) Status() Status { return Status(f) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthzServer(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)

	h := NewHealthzServer(logger, fixedStatus{Running: true, Runs: 2, LastRunID: "abc", Passed: 3, Total: 4, Failed: 1})
	rec := get(t, h.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = get(t, h.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.True(t, got.Running)
	assert.Equal(t, "abc", got.LastRunID)
	assert.Equal(t, 4, got.Total)

	rec = get(t, NewHealthzServer(logger, nil).Handler(), "/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthzCORS(t *testing.T) {
	h := NewHealthzServer(testlog.Logger(t, log.LevelInfo), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "service_test_total", Help: "test"}).Inc()

	rec := get(t, NewMetricsServer(reg).Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "service_test_total 1")
}

func TestServiceStartShutdown(t *testing.T) {
	cfg := Config{
		HealthzEnabled: true,
		HealthzHost:    "127.0.0.1",
		HealthzPort:    0,
		MetricsEnabled: true,
		MetricsHost:    "127.0.0.1",
		MetricsPort:    0,
	}
	s := New(cfg, testlog.Logger(t, log.LevelInfo), nil)
	s.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Shutdown(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not return")
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	h := NewHealthzServer(testlog.Logger(t, log.LevelInfo), nil)
	require.NoError(t, h.Shutdown(context.Background()))
	require.ErrorIs(t, h.Start(context.Background(), "127.0.0.1:0"), http.ErrServerClosed)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "0.0.0.0:8080", cfg.healthzAddr())
	assert.Equal(t, "0.0.0.0:7300", cfg.metricsAddr())
}
