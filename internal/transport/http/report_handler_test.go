package http

import (
	"bytes"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pqmeta/internal/config"
	apierrors "pqmeta/internal/errors"
	"pqmeta/internal/middleware"
	"pqmeta/internal/operations"
	"pqmeta/internal/services"
	"pqmeta/internal/shared/testutil"
	apiv1 "pqmeta/pkg/contracts/api/v1"
	"pqmeta/pkg/contracts/domain"
)

type upload struct {
	name string
	data []byte
}

func newTestRouter(t *testing.T, maxBytes int64) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	store := operations.NewMemoryJobStore(time.Hour, 10)
	orch := operations.NewOrchestrator(operations.DefaultConfig(), logger, operations.WithJobStore(store))
	svc := services.NewReportService(orch, store, "/api/reports", logger)

	errorHandler := apierrors.NewErrorHandler(logger, false)
	uploadCfg := config.Default().Upload
	uploadCfg.MaxBytes = maxBytes
	h := NewReportHandler(svc, uploadCfg, middleware.NewRequestValidator(logger, errorHandler), errorHandler, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/reports", h.Routes())
	h.RegisterLegacy(r)
	return r
}

func multipartBody(t *testing.T, field string, uploads ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, u := range uploads {
		part, err := mw.CreateFormFile(field, u.name)
		require.NoError(t, err)
		_, err = part.Write(u.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func postUpload(t *testing.T, router http.Handler, path string, uploads ...upload) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "files", uploads...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestReportHandler_UploadAndDownload(t *testing.T) {
	router := newTestRouter(t, 10<<20)

	rec := postUpload(t, router, "/api/reports",
		upload{"a.parquet", testutil.SampleFile(2)},
		upload{"b.parquet", []byte("PAR1")},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created apiv1.ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.JobStatusCompleted, created.Status)
	assert.Equal(t, 2, created.FileCount)
	assert.Equal(t, 1, created.Succeeded)
	assert.Equal(t, 1, created.Failed)
	require.Len(t, created.Files, 2)
	assert.Equal(t, "b.parquet", created.Files[1].Name)
	assert.Equal(t, "truncated", created.Files[1].Kind)
	assert.Equal(t, "/api/reports/"+created.ID+"/download", created.DownloadURL)

	rec = get(router, "/api/reports/"+created.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var status apiv1.ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, created.ID, status.ID)

	rec = get(router, "/api/reports")
	require.Equal(t, http.StatusOK, rec.Code)
	var list apiv1.ReportListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	tests := []struct {
		query       string
		contentType string
		prefix      string
		ext         string
	}{
		{query: "", contentType: domain.ReportFormatExcel.ContentType(), prefix: "PK", ext: ".xlsx"},
		{query: "?format=csv", contentType: "text/csv; charset=utf-8", prefix: "\xef\xbb\xbf", ext: ".csv"},
		{query: "?format=parquet", contentType: "application/vnd.apache.parquet", prefix: "PAR1", ext: ".parquet"},
	}
	for _, tt := range tests {
		t.Run("download"+tt.ext, func(t *testing.T) {
			rec := get(router, created.DownloadURL+tt.query)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.True(t, strings.HasPrefix(rec.Body.String(), tt.prefix))

			disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
			require.NoError(t, err)
			assert.Equal(t, "attachment", disposition)
			assert.Equal(t, "parquet_metadata_"+created.ID[:8]+tt.ext, params["filename"])
		})
	}
}

func TestReportHandler_CreateWithFormat(t *testing.T) {
	router := newTestRouter(t, 10<<20)

	body, contentType := multipartBody(t, "files", upload{"a.parquet", testutil.SampleFile(1)})
	req := httptest.NewRequest(http.MethodPost, "/api/reports?format=csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created apiv1.ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasSuffix(created.DownloadURL, "/download?format=csv"))
}

func TestReportHandler_Errors(t *testing.T) {
	router := newTestRouter(t, 10<<20)
	missingID := "00000000-0000-4000-8000-000000000000"

	tests := []struct {
		name       string
		do         func() *httptest.ResponseRecorder
		wantStatus int
		wantType   string
		wantKind   string
	}{
		{
			name: "unsupported extension",
			do: func() *httptest.ResponseRecorder {
				return postUpload(t, router, "/api/reports",
					upload{"a.parquet", testutil.SampleFile(1)},
					upload{"notes.txt", []byte("hello")})
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeBatchRejected,
			wantKind:   "unsupported_extension",
		},
		{
			name: "empty batch",
			do: func() *httptest.ResponseRecorder {
				return postUpload(t, router, "/api/reports")
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeBatchRejected,
			wantKind:   "empty_batch",
		},
		{
			name: "not multipart",
			do: func() *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader("{}"))
				req.Header.Set("Content-Type", "application/json")
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				return rec
			},
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   apierrors.TypeUnsupportedMedia,
		},
		{
			name:       "unknown report",
			do:         func() *httptest.ResponseRecorder { return get(router, "/api/reports/"+missingID) },
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeReportNotFound,
		},
		{
			name:       "malformed id",
			do:         func() *httptest.ResponseRecorder { return get(router, "/api/reports/not-a-uuid") },
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name: "bad format",
			do: func() *httptest.ResponseRecorder {
				return get(router, "/api/reports/"+missingID+"/download?format=ods")
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "legacy download before any upload",
			do:         func() *httptest.ResponseRecorder { return get(router, "/download") },
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeReportNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.do()
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, problem["type"])
			assert.Equal(t, float64(tt.wantStatus), problem["status"])
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, problem["kind"])
			}
		})
	}
}

func TestReportHandler_PayloadTooLarge(t *testing.T) {
	router := newTestRouter(t, 64)

	rec := postUpload(t, router, "/api/reports", upload{"a.parquet", testutil.SampleFile(1)})
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, apierrors.TypePayloadTooLarge, problem["type"])
	assert.Equal(t, float64(64), problem["max_bytes"])
}

func TestReportHandler_Legacy(t *testing.T) {
	router := newTestRouter(t, 10<<20)

	rec := postUpload(t, router, "/upload", upload{"a.parquet", testutil.SampleFile(1)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/download", resp["excel_url"])
	assert.Contains(t, resp, "report")

	rec = get(router, "/download")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ReportFormatExcel.ContentType(), rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=parquet_metadata.xlsx`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
