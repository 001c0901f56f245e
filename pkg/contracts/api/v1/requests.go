// Package api contains the HTTP contract of the pqmeta report service.
// Version v1 represents the current stable API version.
package api

// UploadRequest describes the multipart form accepted by POST /api/reports.
// Files are read from the configured form field; Format only affects the
// download_url returned with the job.
type UploadRequest struct {
	Format string `json:"format,omitempty" query:"format" validate:"omitempty,report_format"`
}

// DownloadRequest selects a finished report and its encoding. An empty ID
// means the most recently completed report.
type DownloadRequest struct {
	ID     string `json:"id,omitempty" validate:"omitempty,uuid"`
	Format string `json:"format,omitempty" query:"format" validate:"omitempty,report_format"`
}

// StatusRequest selects a job by ID
type StatusRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}
