package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pqmeta/internal/config"
	apierrors "pqmeta/internal/errors"
	"pqmeta/internal/shared/testutil"
	apiv1 "pqmeta/pkg/contracts/api/v1"
	"pqmeta/pkg/contracts/domain"
)

// newTestApp builds an application from the defaults after applying mutate
func newTestApp(t *testing.T, mutate func(cfg *config.Config)) *Application {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	logger, _ := testutil.NewTestLogger(t)

	app, err := New(cfg, logger)
	require.NoError(t, err)
	return app
}

func serve(app *Application, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// TestNew tests that every component is wired
func TestNew(t *testing.T) {
	app := newTestApp(t, nil)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.OTelProviders)
	assert.NotNil(t, app.JobStore)
	assert.NotNil(t, app.Orchestrator)
	assert.NotNil(t, app.ReportService)
	assert.NotNil(t, app.HealthService)
	assert.Equal(t, app.Config.Extraction.Workers, app.Orchestrator.Config().Workers)
	assert.Equal(t, time.Hour, app.JobStore.TTL())

	_, err := New(nil, nil)
	assert.Error(t, err)
}

// TestNewApplication tests loading configuration from file and environment
func TestNewApplication(t *testing.T) {
	t.Run("yaml and environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		yaml := "server:\n  port: 9090\nextraction:\n  workers: 2\n"
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
		t.Setenv("PQMETA_EXTRACTION_WORKERS", "3")

		app, err := NewApplication(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, app.Config.Server.Port)
		assert.Equal(t, 3, app.Config.Extraction.Workers)
		assert.Equal(t, ":9090", app.Server.Addr)
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		app, err := NewApplication(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 8080, app.Config.Server.Port)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		t.Setenv("PQMETA_EXTRACTION_WORKERS", "0")
		_, err := NewApplication("")
		assert.Error(t, err)
	})
}

// TestApplication_setupRouter tests the mounted routes
func TestApplication_setupRouter(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantType   string
	}{
		{name: "health", method: http.MethodGet, path: "/api/health", wantStatus: http.StatusOK},
		{name: "readiness", method: http.MethodGet, path: "/api/health/ready", wantStatus: http.StatusOK},
		{name: "version", method: http.MethodGet, path: "/api/version", wantStatus: http.StatusOK},
		{name: "report list", method: http.MethodGet, path: "/api/reports", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound, wantType: apierrors.TypeNotFound},
		{name: "legacy download without report", method: http.MethodGet, path: "/download", wantStatus: http.StatusNotFound, wantType: apierrors.TypeReportNotFound},
		{name: "method not allowed", method: http.MethodDelete, path: "/api/reports", wantStatus: http.StatusMethodNotAllowed, wantType: apierrors.TypeMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(app, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

			if tt.wantType != "" {
				var problem map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
				assert.Equal(t, tt.wantType, problem["type"])
			}
		})
	}
}

func TestApplication_SecurityHeaders(t *testing.T) {
	app := newTestApp(t, nil)

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestApplication_MetricsDisabled(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Telemetry.EnableMetrics = false
	})

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, app.OTelProviders.Meter)
}

// TestApplication_getCORSConfig tests CORS handling through the router
func TestApplication_getCORSConfig(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		origins    []string
		origin     string
		wantOrigin string
	}{
		{name: "allowed origin", enabled: true, origins: []string{"http://localhost:3000"}, origin: "http://localhost:3000", wantOrigin: "http://localhost:3000"},
		{name: "foreign origin", enabled: true, origins: []string{"http://localhost:3000"}, origin: "http://evil.example", wantOrigin: ""},
		{name: "wildcard", enabled: true, origins: []string{"*"}, origin: "http://any.example", wantOrigin: "http://any.example"},
		{name: "disabled", enabled: false, origins: []string{"*"}, origin: "http://any.example", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, func(cfg *config.Config) {
				cfg.Security.EnableCORS = tt.enabled
				cfg.Security.AllowedOrigins = tt.origins
			})

			req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := serve(app, req)

			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.enabled {
				assert.Equal(t, http.StatusNoContent, rec.Code)
				assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
			}
		})
	}
}

func TestApplication_RateLimit(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	})

	first := serve(app, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(app, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

// TestApplication_ReportFlow uploads a batch through the full middleware
// chain and downloads the workbook
func TestApplication_ReportFlow(t *testing.T) {
	app := newTestApp(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range map[string][]byte{
		"a.parquet": testutil.SampleFile(2),
		"b.parquet": testutil.SampleFile(1),
	} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(app, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created apiv1.ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.JobStatusCompleted, created.Status)
	assert.Equal(t, 2, created.Succeeded)

	rec = serve(app, httptest.NewRequest(http.MethodGet, created.DownloadURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ReportFormatExcel.ContentType(), rec.Header().Get("Content-Type"))
	assert.Equal(t, "PK", rec.Body.String()[:2])

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/download", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/api/health/detailed", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var detailed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detailed))
	assert.Equal(t, map[string]interface{}{
		"total_jobs": float64(1),
		"received":   float64(0),
		"processing": float64(0),
		"completed":  float64(1),
		"cancelled":  float64(0),
	}, detailed["jobs"])
}

// TestApplication_StartStop tests serving on a real port and graceful shutdown
func TestApplication_StartStop(t *testing.T) {
	port := freePort(t)
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.Port = port
		cfg.Server.ShutdownTimeout = 5 * time.Second
	})

	errCh := app.Start(context.Background())

	url := fmt.Sprintf("http://127.0.0.1:%d/api/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, app.Stop(context.Background()))

	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "unexpected server error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestApplication_StartPortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.Port = l.Addr().(*net.TCPAddr).Port
	})
	app.Server.Addr = l.Addr().String()

	errCh := app.Start(context.Background())
	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected listen error")
	}
}

func TestCleanupInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{ttl: 0, want: 0},
		{ttl: -time.Second, want: 0},
		{ttl: 2 * time.Second, want: time.Second},
		{ttl: time.Hour, want: 15 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.ttl.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, cleanupInterval(tt.ttl))
		})
	}
}
