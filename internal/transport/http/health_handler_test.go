package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pqmeta/internal/services"
	"pqmeta/internal/shared/testutil"
)

type fixedStats map[string]int

func (f fixedStats) Stats() map[string]int { return f }

func newHealthRouter(t *testing.T, jobs services.JobStats, workers int) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewHealthHandler(services.NewHealthService("1.0.0", jobs, workers, logger), logger)

	r := chi.NewRouter()
	r.Mount("/api/health", h.Routes())
	r.Get("/api/version", h.Version)
	return r
}

func TestHealthHandler_Endpoints(t *testing.T) {
	router := newHealthRouter(t, fixedStats{"total_jobs": 1}, 4)

	tests := []struct {
		path       string
		wantStatus int
		wantField  string
		wantValue  interface{}
	}{
		{path: "/api/health", wantStatus: http.StatusOK, wantField: "status", wantValue: "ok"},
		{path: "/api/health/ready", wantStatus: http.StatusOK, wantField: "status", wantValue: "ready"},
		{path: "/api/health/live", wantStatus: http.StatusOK, wantField: "status", wantValue: "alive"},
		{path: "/api/version", wantStatus: http.StatusOK, wantField: "version", wantValue: "1.0.0"},
		{path: "/api/health/detailed", wantStatus: http.StatusOK, wantField: "jobs", wantValue: map[string]interface{}{"total_jobs": float64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(router, tt.path)
			require.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantValue, body[tt.wantField])
		})
	}
}

func TestHealthHandler_NotReady(t *testing.T) {
	router := newHealthRouter(t, nil, 4)

	rec := get(router, "/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body["status"])
}

func TestMetricsHandler(t *testing.T) {
	scrape := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# HELP up\n"))
	})

	rec := httptest.NewRecorder()
	NewMetricsHandler(scrape).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP up")

	rec = httptest.NewRecorder()
	NewMetricsHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
