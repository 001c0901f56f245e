package http

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pqmeta/internal/config"
	apierrors "pqmeta/internal/errors"
	"pqmeta/internal/middleware"
	"pqmeta/internal/operations"
	"pqmeta/internal/services"
	apiv1 "pqmeta/pkg/contracts/api/v1"
	"pqmeta/pkg/contracts/domain"
)

// multipartMemory is how much of an upload is buffered in memory before
// net/http spills the rest to temporary files
const multipartMemory = 32 << 20

// ReportHandler handles report upload and download requests
type ReportHandler struct {
	service      *services.ReportService
	upload       config.UploadConfig
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	tracer       trace.Tracer
	logger       *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(service *services.ReportService, upload config.UploadConfig, validator *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ReportHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if upload.FormField == "" {
		upload.FormField = "files"
	}
	return &ReportHandler{
		service:      service,
		upload:       upload,
		validator:    validator,
		errorHandler: errorHandler,
		tracer:       otel.Tracer("pqmeta.http.reports"),
		logger:       logger.With(slog.String("handler", "reports")),
	}
}

// Routes returns a chi router for the report endpoints
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/", h.CreateReport)
	r.Get("/", h.ListReports)
	r.Get("/{id}", h.GetReport)
	r.Get("/{id}/download", h.DownloadReport)
	return r
}

// RegisterLegacy mounts the single-report /upload and /download endpoints
func (h *ReportHandler) RegisterLegacy(r chi.Router) {
	r.Post("/upload", h.LegacyUpload)
	r.Get("/download", h.LegacyDownload)
}

// CreateReport handles POST /api/reports
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	req := apiv1.UploadRequest{Format: r.URL.Query().Get("format")}
	if !h.validator.Validate(w, r, &req) {
		return
	}

	job, ok := h.process(w, r)
	if !ok {
		return
	}

	resp := h.service.ToResponse(job)
	if resp.DownloadURL != "" && req.Format != "" {
		resp.DownloadURL += "?format=" + req.Format
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// LegacyUpload handles POST /upload
func (h *ReportHandler) LegacyUpload(w http.ResponseWriter, r *http.Request) {
	job, ok := h.process(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"message":   "Files processed",
		"excel_url": "/download",
		"report":    h.service.ToResponse(job),
	})
}

// process reads the multipart batch and runs it to completion. It writes
// the error response itself and reports whether the caller may continue.
func (h *ReportHandler) process(w http.ResponseWriter, r *http.Request) (*operations.Job, bool) {
	ctx, span := h.tracer.Start(r.Context(), "reports.process_upload")
	defer span.End()
	reqID := middleware.GetRequestID(ctx)

	if h.upload.MaxBytes > 0 {
		if r.ContentLength > h.upload.MaxBytes {
			h.fail(w, r, span, &http.MaxBytesError{Limit: h.upload.MaxBytes})
			return nil, false
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.upload.MaxBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var sizeErr *http.MaxBytesError
		if !errors.As(err, &sizeErr) {
			err = apierrors.InvalidRequestWithError(err)
		}
		h.fail(w, r, span, err)
		return nil, false
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.WarnContext(ctx, "failed to remove upload temp files", slog.String("error", err.Error()))
		}
	}()

	headers := r.MultipartForm.File[h.upload.FormField]
	span.SetAttributes(
		attribute.Int("batch.files", len(headers)),
		attribute.String("request_id", reqID),
	)
	h.logger.InfoContext(ctx, "upload received",
		slog.String("request_id", reqID),
		slog.Int("files", len(headers)),
		slog.Int64("content_length", r.ContentLength))

	job, err := h.service.ProcessUpload(ctx, headers)
	if err != nil {
		h.fail(w, r, span, err)
		return nil, false
	}

	span.SetAttributes(attribute.String("job.id", job.ID))
	h.logger.InfoContext(ctx, "report created",
		slog.String("request_id", reqID),
		slog.String("job_id", job.ID),
		slog.Int("succeeded", job.Result.Succeeded()),
		slog.Int("failed", job.Result.Failed()))
	return job, true
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.ListResponse())
}

// GetReport handles GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	req := apiv1.StatusRequest{ID: chi.URLParam(r, "id")}
	if !h.validator.Validate(w, r, &req) {
		return
	}

	job, err := h.service.Get(req.ID)
	if err != nil {
		h.errorHandler.HandleError(w, r, translate(err))
		return
	}
	render.JSON(w, r, h.service.ToResponse(job))
}

// DownloadReport handles GET /api/reports/{id}/download
func (h *ReportHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	req := apiv1.DownloadRequest{ID: chi.URLParam(r, "id"), Format: r.URL.Query().Get("format")}
	if !h.validator.Validate(w, r, &req) {
		return
	}
	format, _ := domain.ParseReportFormat(req.Format)

	job, err := h.service.Get(req.ID)
	if err != nil {
		h.errorHandler.HandleError(w, r, translate(err))
		return
	}
	report, err := h.service.Render(job, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, translate(err))
		return
	}
	h.writeReport(w, r, report)
}

// LegacyDownload handles GET /download, serving the latest report
func (h *ReportHandler) LegacyDownload(w http.ResponseWriter, r *http.Request) {
	req := apiv1.DownloadRequest{Format: r.URL.Query().Get("format")}
	if !h.validator.Validate(w, r, &req) {
		return
	}
	format, _ := domain.ParseReportFormat(req.Format)

	report, err := h.service.RenderLatest(format)
	if err != nil {
		h.errorHandler.HandleError(w, r, translate(err))
		return
	}
	h.writeReport(w, r, report)
}

func (h *ReportHandler) writeReport(w http.ResponseWriter, r *http.Request, report *services.Report) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(report.Body); err != nil {
		h.logger.WarnContext(r.Context(), "report download interrupted",
			slog.String("file", report.FileName),
			slog.String("error", err.Error()))
	}
}

func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	h.errorHandler.HandleError(w, r, translate(err))
}

// translate maps service errors to API errors. Engine errors pass through
// and are mapped by the error handler.
func translate(err error) error {
	switch {
	case errors.Is(err, services.ErrReportNotReady):
		return apierrors.ErrReportNotReady
	case errors.Is(err, services.ErrReportUnavailable):
		return apierrors.ErrReportUnavailable
	case errors.Is(err, services.ErrUnsupportedFormat):
		return apierrors.ErrValidation("format", "format must be one of: xlsx, csv, parquet")
	default:
		return err
	}
}
