package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/berlin-events-service/internal/adapter/http"
	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/pipeline"
	"github.com/couchcryptid/berlin-events-service/internal/store"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type staticProviders []domain.ProviderConfig

func (p staticProviders) Providers() ([]domain.ProviderConfig, error) { return p, nil }

type blockingRunner struct {
	started chan bool
	release chan struct{}
}

func (b *blockingRunner) RunCycle(_ context.Context, force bool) pipeline.CycleResult {
	b.started <- force
	<-b.release
	return pipeline.CycleResult{CycleID: "test"}
}

type fixedCache int

func (c fixedCache) Len() int { return int(c) }

var base = time.Date(2026, time.January, 25, 18, 0, 0, 0, time.UTC)

func newTestStore() *store.EventStore {
	st := store.New(clockwork.NewFakeClockAt(base))
	st.Save("kino_toni", []domain.Event{
		{ID: "kino_toni_1", Title: "Stummfilm", ProviderID: "kino_toni", StartDate: base.Add(time.Hour)},
	})
	st.Save("velodrom", []domain.Event{
		{ID: "velodrom_1", Title: "Sechstagerennen", ProviderID: "velodrom", StartDate: base},
	})
	return st
}

func newTestServer(t *testing.T, backend httpadapter.Backend) *httpadapter.Server {
	t.Helper()
	if backend.Events == nil {
		backend.Events = newTestStore()
	}
	if backend.Providers == nil {
		backend.Providers = staticProviders{
			{ID: "kino_toni", Enabled: true, Module: "jsonfeed", Region: "berlin"},
			{ID: "velodrom", Enabled: true, Module: "example"},
			{ID: "retired", Enabled: false, Module: "example"},
		}
	}
	if backend.Ready == nil {
		backend.Ready = &mockReadiness{}
	}
	return httpadapter.NewServer(context.Background(), ":0", backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(t *testing.T, srv http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestEvents_All(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{}), http.MethodGet, "/events")

	assert.Equal(t, http.StatusOK, rec.Code)
	var events []domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "velodrom_1", events[0].ID, "ordered by start date")
}

func TestEvents_ByProvider(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{}), http.MethodGet, "/events?provider_id=kino_toni")

	var events []domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "kino_toni_1", events[0].ID)
}

func TestEvents_UnknownProviderIsEmptyList(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{}), http.MethodGet, "/events?provider_id=nope")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestProviders_EnabledOnlyWithMaskedModule(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{}), http.MethodGet, "/providers")

	assert.Equal(t, http.StatusOK, rec.Code)
	var providers []domain.ProviderConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &providers))
	require.Len(t, providers, 2)
	for _, p := range providers {
		assert.Equal(t, "***", p.Module)
		assert.True(t, p.Enabled)
	}
}

func TestStatus(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{Cache: fixedCache(7)}), http.MethodGet, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status           string                 `json:"status"`
		ProvidersLoaded  int                    `json:"providers_loaded"`
		Providers        []store.ProviderStatus `json:"providers"`
		GeocodingEnabled bool                   `json:"geocoding_enabled"`
		GeocacheEntries  int                    `json:"geocache_entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body.Status)
	assert.Equal(t, 3, body.ProvidersLoaded)
	assert.Len(t, body.Providers, 2)
	assert.True(t, body.GeocodingEnabled)
	assert.Equal(t, 7, body.GeocacheEntries)
}

func TestStatus_GeocodingDisabled(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{}), http.MethodGet, "/status")

	assert.Contains(t, rec.Body.String(), `"geocoding_enabled":false`)
}

func TestRefresh_RunsForcedCycleOnce(t *testing.T) {
	runner := &blockingRunner{started: make(chan bool, 1), release: make(chan struct{})}
	srv := newTestServer(t, httpadapter.Backend{Refresher: runner})

	rec := do(t, srv, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case force := <-runner.started:
		assert.True(t, force)
	case <-time.After(time.Second):
		t.Fatal("refresh cycle did not start")
	}

	rec = do(t, srv, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(runner.release)
	require.Eventually(t, func() bool {
		return !refreshing(srv)
	}, time.Second, 5*time.Millisecond)
}

func TestRefresh_RejectsGet(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{}), http.MethodGet, "/refresh")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{}), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{}), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, httpadapter.Backend{Ready: &mockReadiness{err: fmt.Errorf("no refresh cycle has completed yet")}})
	rec := do(t, srv, http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no refresh cycle has completed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(t, httpadapter.Backend{}), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func refreshing(srv http.Handler) bool {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var body struct {
		Refreshing bool `json:"refreshing"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return body.Refreshing
}
