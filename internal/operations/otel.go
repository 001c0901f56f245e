package operations

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pqmeta/pkg/contracts/domain"
)

const TracerName = "pqmeta.operations"

func defaultTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

func (o *Orchestrator) startBatchSpan(ctx context.Context, job *Job) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, "extraction.batch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.Int("batch.files", len(job.Files)),
			attribute.Int("batch.workers", o.cfg.Workers),
		),
	)
}

func (o *Orchestrator) startFileSpan(ctx context.Context, index int, name string, size int64) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, "extraction.file",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("file.index", index),
			attribute.String("file.name", name),
			attribute.Int64("file.size", size),
		),
	)
}

// endFileSpan annotates the span with the outcome of one file
func endFileSpan(span trace.Span, ex Extraction) {
	if ex.Failure != nil {
		span.SetAttributes(
			attribute.String("file.status", "failed"),
			attribute.String("failure.stage", string(ex.Failure.Stage)),
		)
		span.SetStatus(codes.Error, ex.Failure.Reason)
	} else {
		span.SetAttributes(attribute.String("file.status", "ok"))
		if ex.Report != nil {
			span.SetAttributes(
				attribute.Int64("file.rows", ex.Report.RowCount),
				attribute.Int("file.row_groups", len(ex.Report.RowGroups)),
			)
		}
	}
	span.End()
}

func endBatchSpan(span trace.Span, job *Job) {
	span.SetAttributes(attribute.String("job.status", string(job.Status)))
	if job.Result != nil {
		span.SetAttributes(
			attribute.Int("batch.succeeded", job.Result.Succeeded()),
			attribute.Int("batch.failed", job.Result.Failed()),
		)
	}
	if job.Status != domain.JobStatusCompleted {
		span.SetStatus(codes.Error, job.Error)
	}
	span.End()
}
