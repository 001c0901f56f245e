package services

import "errors"

// Report service errors
var (
	// ErrReportNotReady means the job is still running
	ErrReportNotReady = errors.New("report not ready")

	// ErrReportUnavailable means the job finished without a document
	// (cancelled, or the report could not be built)
	ErrReportUnavailable = errors.New("report unavailable")

	// ErrUnsupportedFormat is returned for an unknown download format
	ErrUnsupportedFormat = errors.New("unsupported report format")
)
