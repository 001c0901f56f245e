package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ExtractionMetrics holds the instruments recorded by the extraction engine
type ExtractionMetrics struct {
	FilesProcessed metric.Int64Counter
	FileFailures   metric.Int64Counter
	BatchesTotal   metric.Int64Counter
	BatchDuration  metric.Float64Histogram
	FooterBytes    metric.Int64Histogram
	ActiveBatches  metric.Int64UpDownCounter
}

// HTTPMetrics holds the instruments recorded by the HTTP middleware
type HTTPMetrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ActiveRequests  metric.Int64UpDownCounter
}

// GlobalMeter returns a meter from the global provider. It is a noop meter
// until InitializeOTel installs a real one.
func GlobalMeter() metric.Meter {
	return otel.GetMeterProvider().Meter(MeterName)
}

// CreateExtractionMetrics creates the engine instruments on meter
func CreateExtractionMetrics(meter metric.Meter) (*ExtractionMetrics, error) {
	filesProcessed, err := meter.Int64Counter(
		"files_processed_total",
		metric.WithDescription("Files processed, labelled by status (ok, failed)"),
	)
	if err != nil {
		return nil, err
	}

	fileFailures, err := meter.Int64Counter(
		"file_failures_total",
		metric.WithDescription("Per-file failures, labelled by pipeline stage"),
	)
	if err != nil {
		return nil, err
	}

	batchesTotal, err := meter.Int64Counter(
		"batches_total",
		metric.WithDescription("Extraction batches, labelled by final job status"),
	)
	if err != nil {
		return nil, err
	}

	batchDuration, err := meter.Float64Histogram(
		"batch_duration_seconds",
		metric.WithDescription("Wall time of an extraction batch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	footerBytes, err := meter.Int64Histogram(
		"footer_bytes",
		metric.WithDescription("Size of decoded Parquet footers"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	activeBatches, err := meter.Int64UpDownCounter(
		"active_batches",
		metric.WithDescription("Batches currently being extracted"),
	)
	if err != nil {
		return nil, err
	}

	return &ExtractionMetrics{
		FilesProcessed: filesProcessed,
		FileFailures:   fileFailures,
		BatchesTotal:   batchesTotal,
		BatchDuration:  batchDuration,
		FooterBytes:    footerBytes,
		ActiveBatches:  activeBatches,
	}, nil
}

// CreateHTTPMetrics creates the HTTP server instruments on meter
func CreateHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		RequestsTotal:   requestsTotal,
		RequestDuration: requestDuration,
		ActiveRequests:  activeRequests,
	}, nil
}

// RecordFile records the outcome of one file. stage is empty for successes.
func (m *ExtractionMetrics) RecordFile(ctx context.Context, ok bool, stage string, footerLen int64) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.FilesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	if !ok {
		m.FileFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	}
	if footerLen > 0 {
		m.FooterBytes.Record(ctx, footerLen)
	}
}

// RecordBatch records a finished batch with its final job status
func (m *ExtractionMetrics) RecordBatch(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.BatchesTotal.Add(ctx, 1, attrs)
	m.BatchDuration.Record(ctx, duration.Seconds(), attrs)
}

// BatchStarted adjusts the active batch gauge; call the returned func when done
func (m *ExtractionMetrics) BatchStarted(ctx context.Context) func() {
	if m == nil {
		return func() {}
	}
	m.ActiveBatches.Add(ctx, 1)
	return func() { m.ActiveBatches.Add(ctx, -1) }
}

// RecordRequest records one served HTTP request
func (m *HTTPMetrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.RequestsTotal.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RegisterRuntimeMetrics exposes goroutine, heap and uptime gauges that are
// sampled on each collection.
func RegisterRuntimeMetrics(meter metric.Meter, startTime time.Time) error {
	goroutines, err := meter.Int64ObservableGauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return err
	}

	heapAlloc, err := meter.Int64ObservableGauge(
		"system_memory_allocated_bytes",
		metric.WithDescription("Heap bytes allocated by the Go runtime"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	uptime, err := meter.Float64ObservableGauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
		o.ObserveInt64(heapAlloc, int64(mem.HeapAlloc))
		o.ObserveFloat64(uptime, time.Since(startTime).Seconds())
		return nil
	}, goroutines, heapAlloc, uptime)
	return err
}
