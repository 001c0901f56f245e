// Package http implements the HTTP handlers of the pqmeta report service.
// Handlers stay thin: they parse and validate the request, call a service
// and format the response. All errors are written as RFC 7807 problem
// details through the shared error handler.
//
// # Endpoints
//
//	POST /api/reports                 upload a batch (multipart field "files")
//	GET  /api/reports                 list retained reports
//	GET  /api/reports/{id}            job status and per-file outcomes
//	GET  /api/reports/{id}/download   ?format=xlsx|csv|parquet
//	GET  /api/health[/ready|/live|/detailed]
//	GET  /api/version
//	GET  /metrics                     Prometheus scrape endpoint
//
// The legacy single-report endpoints are kept as aliases:
//
//	POST /upload     same as POST /api/reports, answers with excel_url
//	GET  /download   the most recently completed report
//
// # Testing
//
// Handlers are tested with httptest against a real ReportService backed by
// an in-memory job store and generated Parquet fixtures.
package http
