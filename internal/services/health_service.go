package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"pqmeta/pkg/contracts"
)

// JobStats reports job counts by status
type JobStats interface {
	Stats() map[string]int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	jobs      JobStats
	workers   int
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. jobs may be nil, in which case
// readiness reports the job store as not ready.
func NewHealthService(version string, jobs JobStats, workers int, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.Int("workers", workers))

	return &HealthService{
		version:   version,
		jobs:      jobs,
		workers:   workers,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"job_store": hs.checkJobStore(),
			"extractor": hs.checkExtractor(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "service not ready", slog.Any("services", status.Services))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	result := map[string]interface{}{
		"version":       hs.version,
		"api_version":   info.APIVersion,
		"report_format": info.ReportFormat,
		"go_version":    runtime.Version(),
		"os":            runtime.GOOS,
		"arch":          runtime.GOARCH,
		"uptime":        time.Since(hs.startTime).Seconds(),
		"start_time":    hs.startTime.Format(time.RFC3339),
		"current_time":  time.Now().Format(time.RFC3339),
	}
	if info.BuildTime != "" {
		result["build_time"] = info.BuildTime
	}
	if info.GitCommit != "" {
		result["git_commit"] = info.GitCommit
	}
	return result
}

func (hs *HealthService) checkJobStore() ServiceHealth {
	if hs.jobs == nil {
		return ServiceHealth{Status: "not_ready", Message: "job store not initialized"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "job store is healthy",
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkExtractor() ServiceHealth {
	if hs.workers < 1 {
		return ServiceHealth{Status: "not_ready", Message: "no extraction workers configured"}
	}
	return ServiceHealth{Status: "ready", Message: "extractor is healthy"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	detailed := map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
	}
	if hs.jobs != nil {
		detailed["jobs"] = hs.jobs.Stats()
	}
	return detailed
}
