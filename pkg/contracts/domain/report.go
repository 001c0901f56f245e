package domain

import (
	"time"
)

// ReportFormat defines the encoding of a downloadable report
type ReportFormat string

const (
	ReportFormatExcel   ReportFormat = "xlsx"
	ReportFormatCSV     ReportFormat = "csv"
	ReportFormatParquet ReportFormat = "parquet"
)

// ParseReportFormat maps a query value to a format, defaulting to xlsx
func ParseReportFormat(s string) (ReportFormat, bool) {
	switch ReportFormat(s) {
	case "", ReportFormatExcel:
		return ReportFormatExcel, true
	case ReportFormatCSV:
		return ReportFormatCSV, true
	case ReportFormatParquet:
		return ReportFormatParquet, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type for the format
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatCSV:
		return "text/csv; charset=utf-8"
	case ReportFormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Extension returns the file extension for the format, with the dot
func (f ReportFormat) Extension() string {
	return "." + string(f)
}

// ReportMetadata describes a finished report job
type ReportMetadata struct {
	JobID          string        `json:"job_id"`
	FileCount      int           `json:"file_count"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	ProcessingTime time.Duration `json:"processing_time"`
	GeneratedAt    time.Time     `json:"generated_at"`
	ExpiresAt      time.Time     `json:"expires_at,omitempty"`
}
