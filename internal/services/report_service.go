package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"pqmeta/internal/exporter"
	"pqmeta/internal/files"
	"pqmeta/internal/operations"
	apiv1 "pqmeta/pkg/contracts/api/v1"
	"pqmeta/pkg/contracts/domain"
)

// LegacyReportName is the download name used by the /download endpoint
const LegacyReportName = "parquet_metadata"

// Report is a rendered, downloadable report
type Report struct {
	FileName    string
	ContentType string
	Body        []byte
}

// ReportService runs upload batches and serves their reports
type ReportService struct {
	orchestrator *operations.Orchestrator
	store        *operations.MemoryJobStore
	basePath     string
	logger       *slog.Logger
	now          func() time.Time
}

// NewReportService creates a report service. The orchestrator must publish
// into store (operations.WithJobStore) for jobs to be retrievable.
func NewReportService(orch *operations.Orchestrator, store *operations.MemoryJobStore, basePath string, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if basePath == "" {
		basePath = "/api/reports"
	}
	return &ReportService{
		orchestrator: orch,
		store:        store,
		basePath:     basePath,
		logger:       logger.With("service", "report"),
		now:          time.Now,
	}
}

// Process runs one batch. On cancellation or a report failure the job is
// returned alongside the error.
func (s *ReportService) Process(ctx context.Context, sources []files.Source) (*operations.Job, error) {
	job, err := s.orchestrator.Run(ctx, sources)
	if err != nil {
		s.logger.WarnContext(ctx, "batch did not complete",
			slog.Int("files", len(sources)),
			slog.String("error", err.Error()))
		return job, err
	}
	return job, nil
}

// ProcessUpload opens the uploaded form files and processes them as one
// batch. All files are closed before it returns.
func (s *ReportService) ProcessUpload(ctx context.Context, headers []*multipart.FileHeader) (*operations.Job, error) {
	sources := make([]files.Source, 0, len(headers))
	defer func() {
		if err := files.CloseAll(sources); err != nil {
			s.logger.WarnContext(ctx, "failed to close uploads", slog.String("error", err.Error()))
		}
	}()

	for _, fh := range headers {
		src, err := files.FromMultipart(fh)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return s.Process(ctx, sources)
}

// Get returns a retained job
func (s *ReportService) Get(id string) (*operations.Job, error) {
	return s.store.Get(id)
}

// Latest returns the most recently completed job that has a report
func (s *ReportService) Latest() (*operations.Job, error) {
	return s.store.Latest()
}

// List returns all retained jobs, newest first
func (s *ReportService) List() []*operations.Job {
	return s.store.List()
}

// Stats returns job counts by status
func (s *ReportService) Stats() map[string]int {
	return s.store.Stats()
}

// Render encodes a completed job's document into memory
func (s *ReportService) Render(job *operations.Job, format domain.ReportFormat) (*Report, error) {
	return s.render(job, format, reportFileName(job))
}

// RenderLatest renders the newest job under the legacy download name
func (s *ReportService) RenderLatest(format domain.ReportFormat) (*Report, error) {
	job, err := s.store.Latest()
	if err != nil {
		return nil, err
	}
	return s.render(job, format, LegacyReportName)
}

func (s *ReportService) render(job *operations.Job, format domain.ReportFormat, baseName string) (*Report, error) {
	if err := downloadable(job); err != nil {
		return nil, err
	}

	enc, err := exporter.EncoderFor(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	start := s.now()
	var buf bytes.Buffer
	if err := enc.Encode(&buf, job.Document); err != nil {
		return nil, fmt.Errorf("failed to encode %s report for job %s: %w", format, job.ID, err)
	}

	s.logger.Info("report rendered",
		slog.String("job_id", job.ID),
		slog.String("format", string(format)),
		slog.Int("bytes", buf.Len()),
		slog.Duration("duration", s.now().Sub(start)))

	return &Report{
		FileName:    baseName + format.Extension(),
		ContentType: format.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

// downloadable checks that a job has a document to render
func downloadable(job *operations.Job) error {
	switch {
	case job.Status == domain.JobStatusCompleted && job.Document != nil:
		return nil
	case job.Status == domain.JobStatusCancelled, job.Error != "":
		return fmt.Errorf("%w: job %s is %s", ErrReportUnavailable, job.ID, job.Status)
	default:
		return fmt.Errorf("%w: job %s is %s", ErrReportNotReady, job.ID, job.Status)
	}
}

func reportFileName(job *operations.Job) string {
	id := job.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return LegacyReportName + "_" + id
}

// DownloadURL returns the download path for a job
func (s *ReportService) DownloadURL(id string) string {
	return s.basePath + "/" + id + "/download"
}

// ToResponse converts a job to its API representation
func (s *ReportService) ToResponse(job *operations.Job) apiv1.ReportResponse {
	md := job.Metadata()
	resp := apiv1.ReportResponse{
		ID:         job.ID,
		Status:     job.Status,
		FileCount:  md.FileCount,
		Succeeded:  md.Succeeded,
		Failed:     md.Failed,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		DurationMS: md.ProcessingTime.Milliseconds(),
	}

	if job.Result != nil {
		resp.Files = fileStatuses(job.Result.Entries)
	} else {
		resp.Files = make([]apiv1.FileStatus, len(job.Files))
		for i, name := range job.Files {
			resp.Files[i] = apiv1.FileStatus{Index: i, Name: name, Status: "pending"}
		}
	}

	if !job.CompletedAt.IsZero() {
		completed := job.CompletedAt
		resp.CompletedAt = &completed
		if ttl := s.store.TTL(); ttl > 0 {
			expires := completed.Add(ttl)
			resp.ExpiresAt = &expires
		}
	}
	if downloadable(job) == nil {
		resp.DownloadURL = s.DownloadURL(job.ID)
	}
	return resp
}

// ListResponse returns every retained job, newest first
func (s *ReportService) ListResponse() apiv1.ReportListResponse {
	jobs := s.store.List()
	out := apiv1.ReportListResponse{
		Reports: make([]apiv1.ReportResponse, 0, len(jobs)),
		Total:   len(jobs),
	}
	for _, job := range jobs {
		out.Reports = append(out.Reports, s.ToResponse(job))
	}
	return out
}

func fileStatuses(entries []domain.FileOutcome) []apiv1.FileStatus {
	out := make([]apiv1.FileStatus, len(entries))
	for i, e := range entries {
		fs := apiv1.FileStatus{Index: e.Index, Name: e.FileName, Size: e.Size, Status: "ok"}
		if f := e.Failure; f != nil {
			fs.Status = "failed"
			fs.Stage = string(f.Stage)
			fs.Kind = f.Kind
			fs.Reason = f.Reason
		}
		out[i] = fs
	}
	return out
}

// StartCleanup removes expired jobs every interval until ctx is done
func (s *ReportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.store.CleanupExpired(); n > 0 {
					s.logger.Info("expired reports removed", slog.Int("count", n))
				}
			}
		}
	}()
}
