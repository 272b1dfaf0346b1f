package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotdrop/internal/config"
	"slotdrop/internal/files"
)

// startingStore is a MemoryStore whose readiness is controlled by the test.
type startingStore struct {
	*files.MemoryStore
	ready chan struct{}
}

func newStartingStore() *startingStore {
	return &startingStore{MemoryStore: files.NewMemoryStore(), ready: make(chan struct{})}
}

func (s *startingStore) Ready() <-chan struct{} { return s.ready }

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func TestHandleLive(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rr.Body.String())
}

func TestHandleReady(t *testing.T) {
	store := newStartingStore()
	env := newTestEnvWith(t, store, config.DefaultLimits(), time.Second)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	close(store.ready)
	rr = env.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var h Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &h))
	assert.Equal(t, HealthStatusHealthy, h.Status)
	assert.Equal(t, "test", h.Version)
	assert.Equal(t, "abc123", h.Commit)
	assert.Equal(t, ComponentStatusUp, h.Components["storage"].Status)
}

func TestHandleHealth_StorageStarting(t *testing.T) {
	env := newTestEnvWith(t, newStartingStore(), config.DefaultLimits(), time.Second)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var h Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &h))
	assert.Equal(t, HealthStatusUnhealthy, h.Status)
}

func TestDetermineOverallHealth(t *testing.T) {
	assert.Equal(t, HealthStatusHealthy, determineOverallHealth(map[string]ComponentHealth{
		"a": {Status: ComponentStatusUp},
	}))
	assert.Equal(t, HealthStatusDegraded, determineOverallHealth(map[string]ComponentHealth{
		"a": {Status: ComponentStatusUp}, "b": {Status: ComponentStatusDegraded},
	}))
	assert.Equal(t, HealthStatusUnhealthy, determineOverallHealth(map[string]ComponentHealth{
		"a": {Status: ComponentStatusDegraded}, "b": {Status: ComponentStatusDown},
	}))
}

func TestReadinessGate_FailsFast(t *testing.T) {
	store := newStartingStore()
	env := newTestEnvWith(t, store, config.DefaultLimits(), 20*time.Millisecond)

	start := time.Now()
	rr := env.createJSON(t, "", map[string]any{"description": "d", "extension": "txt"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "service not ready", errorBody(t, rr))
	assert.Less(t, time.Since(start), time.Second)

	// Probes bypass the gate.
	rr = env.do(httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadinessGate_WaitsForStore(t *testing.T) {
	store := newStartingStore()
	env := newTestEnvWith(t, store, config.DefaultLimits(), 2*time.Second)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(store.ready)
	}()

	rr := env.createJSON(t, "", map[string]any{"description": "d", "extension": "txt"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPrometheusMetrics(t *testing.T) {
	env := newTestEnv(t)
	id := env.reserve(t, "txt")
	require.Equal(t, http.StatusOK, env.upload(t, id, "a.txt", "text/plain", []byte("hello")).Code)
	require.Equal(t, http.StatusBadRequest, env.upload(t, id, "a.txt", "text/plain", []byte("hello")).Code)
	require.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/file/"+id+"/data", nil)).Code)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; version=0.0.4; charset=utf-8", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	assert.Contains(t, body, `slotdrop_info{version="test",commit="abc123"} 1`)
	assert.Contains(t, body, "slotdrop_reservations_total 1\n")
	assert.Contains(t, body, "slotdrop_uploads_total 1\n")
	assert.Contains(t, body, "slotdrop_upload_bytes_total 5\n")
	assert.Contains(t, body, `slotdrop_upload_errors_total{kind="conflict"} 1`)
	assert.Contains(t, body, "slotdrop_downloads_total 1\n")
	assert.Contains(t, body, `slotdrop_request_errors_total{class="4xx"} 1`)

	snap := env.srv.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.UploadErrorsTotal)
	assert.Equal(t, int64(5), snap.RequestsTotal)
}

func TestPrometheusLabel(t *testing.T) {
	assert.Equal(t, `a\"b\\c`, prometheusLabel(`a"b\c`))
}
