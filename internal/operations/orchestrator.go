package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pqmeta/internal/dataprocessing"
	"pqmeta/internal/exporter"
	"pqmeta/internal/files"
	"pqmeta/internal/infrastructure"
	"pqmeta/internal/parquetfmt"
	"pqmeta/internal/validation"
	"pqmeta/pkg/contracts/domain"
)

// Failure kinds that do not come from a typed error
const (
	KindTimeout = "timeout"
	KindPanic   = "panic"
)

// Orchestrator drives the per-file pipeline over a batch of sources
type Orchestrator struct {
	cfg     Config
	logger  *slog.Logger
	locator *parquetfmt.Locator
	metrics *infrastructure.ExtractionMetrics
	tracer  trace.Tracer
	store   JobStore
	now     func() time.Time
	newID   func() string
}

// NewOrchestrator creates an orchestrator. Zero config values fall back to
// the defaults.
func NewOrchestrator(cfg Config, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	cfg = cfg.withDefaults()

	o := &Orchestrator{
		cfg:     cfg,
		logger:  logger.With("component", "orchestrator"),
		locator: parquetfmt.NewLocator(cfg.MaxFooterSize),
		tracer:  defaultTracer(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.metrics == nil {
		m, err := infrastructure.CreateExtractionMetrics(infrastructure.GlobalMeter())
		if err != nil {
			o.logger.Warn("extraction metrics unavailable", "error", err)
		}
		o.metrics = m
	}
	return o
}

// Config returns the effective configuration
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run validates the batch, extracts every source and builds the report.
// A rejected batch returns a *validation.ValidationError and no job. When
// ctx ends before all files are done the job is cancelled, carries no
// document, and ctx's error is returned wrapped.
func (o *Orchestrator) Run(ctx context.Context, sources []files.Source) (*Job, error) {
	names := files.Names(sources)
	if err := validation.ValidateBatch(names, o.cfg.AllowedExtensions); err != nil {
		o.logger.WarnContext(ctx, "batch rejected", "files", len(names), "error", err)
		return nil, err
	}

	job := newJob(o.newID(), names, o.now())
	o.publish(job)

	ctx, span := o.startBatchSpan(ctx, job)
	defer func() { endBatchSpan(span, job) }()
	defer o.metrics.BatchStarted(ctx)()

	logger := o.logger.With("job_id", job.ID)
	if err := job.transition(domain.JobStatusProcessing, o.now()); err != nil {
		return job, err
	}
	o.publish(job)
	logger.InfoContext(ctx, "batch started", "files", len(sources), "workers", o.cfg.Workers)

	items, err := o.extractAll(ctx, logger, sources)
	if err != nil {
		return job, o.cancel(ctx, job, logger, err)
	}

	result := Aggregate(items)
	doc, err := buildReport(result)
	if err != nil {
		job.Error = err.Error()
		o.publish(job)
		return job, &OperationError{Type: ErrorTypeReport, JobID: job.ID, Message: "failed to build report", Cause: err}
	}

	job.Result = &result
	job.Document = doc
	if err := job.transition(domain.JobStatusCompleted, o.now()); err != nil {
		return job, err
	}
	o.publish(job)
	o.metrics.RecordBatch(ctx, string(job.Status), job.Duration())

	logger.InfoContext(ctx, "batch completed",
		"succeeded", result.Succeeded(),
		"failed", result.Failed(),
		"duration", job.Duration())
	return job, nil
}

// buildReport renders the batch. A panic while rendering fails the report
// instead of the process.
func buildReport(result domain.BatchResult) (doc *exporter.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()
	return exporter.BuildReport(result)
}

func (o *Orchestrator) cancel(ctx context.Context, job *Job, logger *slog.Logger, cause error) error {
	// The caller's context is already done; record on a detached one.
	rec := context.WithoutCancel(ctx)
	job.Error = cause.Error()
	if err := job.transition(domain.JobStatusCancelled, o.now()); err != nil {
		return err
	}
	o.publish(job)
	o.metrics.RecordBatch(rec, string(job.Status), job.Duration())
	logger.WarnContext(rec, "batch cancelled", "error", cause)
	return cancelled(job.ID, cause)
}

// extractAll processes every source on at most Workers goroutines. Each
// goroutine writes only its own slot, so results keep submission order.
func (o *Orchestrator) extractAll(ctx context.Context, logger *slog.Logger, sources []files.Source) ([]Extraction, error) {
	results := make([]Extraction, len(sources))

	// Per-file failures are data, so no goroutine ever returns an error and
	// the group never cancels its siblings.
	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for i := range sources {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = o.extractOne(ctx, logger, i, sources[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// extractOne runs the pipeline for one file under the per-file timeout.
// A source that blocks past the deadline is abandoned; its goroutine ends
// when the read returns.
func (o *Orchestrator) extractOne(ctx context.Context, logger *slog.Logger, index int, src files.Source) (ex Extraction) {
	ctx, span := o.startFileSpan(ctx, index, src.Name, src.Size)
	defer func() { endFileSpan(span, ex) }()

	fctx, cancel := context.WithTimeout(ctx, o.cfg.FileTimeout)
	defer cancel()

	done := make(chan Extraction, 1)
	go func() {
		stage := domain.StageLocate
		defer func() {
			if r := recover(); r != nil {
				done <- failed(index, src, stage, KindPanic, fmt.Sprintf("internal error: %v", r))
			}
		}()
		done <- o.pipeline(index, src, &stage)
	}()

	select {
	case ex = <-done:
	case <-fctx.Done():
		if ctx.Err() != nil {
			ex = failed(index, src, domain.StageDecode, "cancelled", ctx.Err().Error())
			return ex
		}
		ex = failed(index, src, domain.StageDecode, KindTimeout,
			fmt.Sprintf("metadata extraction exceeded %s", o.cfg.FileTimeout))
	}

	o.record(ctx, logger, ex)
	return ex
}

// pipeline runs locate, decode and normalize. stage tracks the current step
// for panic recovery.
func (o *Orchestrator) pipeline(index int, src files.Source, stage *domain.Stage) Extraction {
	block, err := o.locator.Locate(src, src.Size)
	if err != nil {
		return failedWith(index, src, domain.StageLocate, err)
	}

	*stage = domain.StageDecode
	footer, err := o.locator.ReadFooter(src, block)
	if err != nil {
		return failedWith(index, src, stageFor(err), err)
	}
	meta, err := parquetfmt.DecodeFileMetaData(footer)
	if err != nil {
		return failedWith(index, src, stageFor(err), err)
	}

	*stage = domain.StageNormalize
	report, err := dataprocessing.Normalize(src.Name, src.Size, block, meta)
	if err != nil {
		return failedWith(index, src, domain.StageNormalize, err)
	}

	return Extraction{Index: index, FileName: src.Name, Size: src.Size, Report: report}
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, ex Extraction) {
	if ex.Failure != nil {
		logger.WarnContext(ctx, "file failed",
			"file", ex.FileName,
			"index", ex.Index,
			"stage", ex.Failure.Stage,
			"kind", ex.Failure.Kind,
			"reason", ex.Failure.Reason)
		o.metrics.RecordFile(ctx, false, string(ex.Failure.Stage), 0)
		return
	}
	logger.DebugContext(ctx, "file extracted",
		"file", ex.FileName,
		"index", ex.Index,
		"rows", ex.Report.RowCount,
		"columns", len(ex.Report.Columns))
	o.metrics.RecordFile(ctx, true, "", ex.Report.FooterLength)
}

func (o *Orchestrator) publish(job *Job) {
	if o.store == nil {
		return
	}
	if err := o.store.Save(job); err != nil {
		o.logger.Warn("failed to store job", "job_id", job.ID, "error", err)
	}
}

// stageFor maps a pipeline error to the stage reported for it. Structural
// problems found while locating or reading the footer belong to locate;
// anything the decoder rejects belongs to decode.
func stageFor(err error) domain.Stage {
	switch parquetfmt.KindOf(err) {
	case parquetfmt.KindBadMagic, parquetfmt.KindTruncated, parquetfmt.KindFooterTooLarge:
		return domain.StageLocate
	case parquetfmt.KindCorruptFooter:
		return domain.StageDecode
	}
	if dataprocessing.IsNormalizeError(err) {
		return domain.StageNormalize
	}
	return domain.StageDecode
}

func failedWith(index int, src files.Source, stage domain.Stage, err error) Extraction {
	kind := string(parquetfmt.KindOf(err))
	var ne *dataprocessing.NormalizeError
	if kind == "" && errors.As(err, &ne) {
		kind = string(ne.Type)
	}
	return failed(index, src, stage, kind, err.Error())
}

func failed(index int, src files.Source, stage domain.Stage, kind, reason string) Extraction {
	return Extraction{
		Index:    index,
		FileName: src.Name,
		Size:     src.Size,
		Failure:  &domain.FailureRecord{Stage: stage, Reason: reason, Kind: kind},
	}
}

// ExtractAndReport runs one batch with the default configuration and the
// global logger.
func ExtractAndReport(ctx context.Context, sources []files.Source) (*exporter.Document, domain.BatchResult, error) {
	job, err := NewOrchestrator(DefaultConfig(), nil).Run(ctx, sources)
	if err != nil {
		return nil, domain.BatchResult{}, err
	}
	return job.Document, *job.Result, nil
}
