package operations

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"pqmeta/internal/config"
	"pqmeta/internal/infrastructure"
	"pqmeta/internal/parquetfmt"
	"pqmeta/internal/validation"
)

const (
	DefaultWorkers     = 4
	DefaultFileTimeout = 30 * time.Second
)

// Config controls how a batch is extracted
type Config struct {
	// Workers bounds the number of files processed at once
	Workers int
	// FileTimeout bounds the extraction of a single file
	FileTimeout time.Duration
	// MaxFooterSize is the largest footer the locator will read
	MaxFooterSize int64
	// AllowedExtensions are matched case-insensitively against file names
	AllowedExtensions []string
}

// DefaultConfig returns the default extraction configuration
func DefaultConfig() Config {
	return Config{
		Workers:           DefaultWorkers,
		FileTimeout:       DefaultFileTimeout,
		MaxFooterSize:     parquetfmt.DefaultMaxFooterSize,
		AllowedExtensions: []string{validation.DefaultExtension},
	}
}

// ConfigFrom maps the extraction section of the application config
func ConfigFrom(cfg config.ExtractionConfig) Config {
	return Config{
		Workers:           cfg.Workers,
		FileTimeout:       cfg.FileTimeout,
		MaxFooterSize:     cfg.MaxFooterSize,
		AllowedExtensions: append([]string(nil), cfg.AllowedExtensions...),
	}
}

// withDefaults fills zero values
func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.FileTimeout <= 0 {
		c.FileTimeout = DefaultFileTimeout
	}
	if c.MaxFooterSize <= 0 {
		c.MaxFooterSize = parquetfmt.DefaultMaxFooterSize
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{validation.DefaultExtension}
	}
	return c
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithMetrics records extraction metrics on m instead of the global meter
func WithMetrics(m *infrastructure.ExtractionMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer sets the tracer used for batch and file spans
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithJobStore publishes every job state change to store
func WithJobStore(store JobStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator replaces the job ID generator
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}
