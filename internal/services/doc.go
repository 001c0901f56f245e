// Package services implements the application layer between the HTTP
// handlers and the extraction engine.
//
// # Available Services
//
//	- ReportService: runs upload batches through the orchestrator, looks up
//	  retained report jobs and renders them in a requested format
//	- HealthService: liveness, readiness and version information
//
// Services never write HTTP responses. They return plain values and the
// errors declared in errors.go (or the engine's typed errors), and the
// transport layer maps those to problem details.
//
// # Report lifecycle
//
//	upload -> orchestrator.Run -> job store -> Render(format) -> download
//
// Uploaded multipart files are read while the request is still open, so a
// batch always completes (or is cancelled) before ProcessUpload returns.
// Finished jobs stay downloadable until the store's TTL passes;
// StartCleanup removes them in the background.
package services
