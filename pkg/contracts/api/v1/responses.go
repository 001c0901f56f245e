package api

import (
	"time"

	"pqmeta/pkg/contracts/domain"
)

// FileStatus reports one submitted file in submission order
type FileStatus struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Status string `json:"status"`
	Stage  string `json:"stage,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ReportResponse describes a report job
type ReportResponse struct {
	ID          string           `json:"id"`
	Status      domain.JobStatus `json:"status"`
	FileCount   int              `json:"file_count"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	Files       []FileStatus     `json:"files"`
	Error       string           `json:"error,omitempty"`
	DownloadURL string           `json:"download_url,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	DurationMS  int64            `json:"duration_ms"`
}

// ReportListResponse lists retained report jobs, newest first
type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
	Total   int              `json:"total"`
}
