package operations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"pqmeta/internal/exporter"
	"pqmeta/internal/files"
	"pqmeta/internal/infrastructure"
	"pqmeta/internal/shared/testutil"
	"pqmeta/internal/validation"
	"pqmeta/pkg/contracts/domain"
)

// slowReader delays every read
type slowReader struct {
	r     *bytes.Reader
	delay time.Duration
}

func (s slowReader) ReadAt(p []byte, off int64) (int, error) {
	time.Sleep(s.delay)
	return s.r.ReadAt(p, off)
}

// blockingReader never returns until release is closed
type blockingReader struct {
	release chan struct{}
}

func (b blockingReader) ReadAt(p []byte, off int64) (int, error) {
	<-b.release
	return 0, errors.New("released")
}

type panicReader struct{}

func (panicReader) ReadAt([]byte, int64) (int, error) {
	panic("reader exploded")
}

// recordingStore remembers every published status
type recordingStore struct {
	*MemoryJobStore
	mu       sync.Mutex
	statuses []domain.JobStatus
}

func (r *recordingStore) Save(job *Job) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, job.Status)
	r.mu.Unlock()
	return r.MemoryJobStore.Save(job)
}

func newTestOrchestrator(t *testing.T, cfg Config, opts ...Option) (*Orchestrator, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	return NewOrchestrator(cfg, logger, opts...), handler
}

func corruptFooterFile() []byte {
	return testutil.BuildFile([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
}

func normalizeFailureFile() []byte {
	meta := testutil.SampleMetaData(1)
	meta.RowGroups[0].Columns = meta.RowGroups[0].Columns[:2]
	return testutil.BuildFile(testutil.EncodeFileMetaData(meta))
}

func TestRun_MixedBatch(t *testing.T) {
	orch, handler := newTestOrchestrator(t, DefaultConfig())

	job, err := orch.Run(context.Background(), []files.Source{
		files.FromBytes("a.parquet", testutil.SampleFile(2)),
		files.FromBytes("bad.parquet", corruptFooterFile()),
		files.FromBytes("c.parquet", testutil.SampleFile(1)),
	})
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, []string{"a.parquet", "bad.parquet", "c.parquet"}, job.Files)
	require.NotNil(t, job.Result)
	require.NotNil(t, job.Document)

	entries := job.Result.Entries
	require.Len(t, entries, 3)
	assert.True(t, entries[0].OK())
	assert.False(t, entries[1].OK())
	assert.True(t, entries[2].OK())
	assert.Equal(t, domain.StageDecode, entries[1].Failure.Stage)
	assert.Equal(t, "corrupt_footer", entries[1].Failure.Kind)
	assert.Equal(t, int64(200), entries[0].Report.RowCount)

	summary := job.Document.Sheet(exporter.SheetSummary)
	require.NotNil(t, summary)
	assert.Len(t, summary.Rows, 3)
	columns := job.Document.Sheet(exporter.SheetColumns)
	require.NotNil(t, columns)
	assert.Len(t, columns.Rows, 9)

	assert.False(t, job.StartedAt.IsZero())
	assert.False(t, job.CompletedAt.IsZero())
	failedLog := testutil.RequireLog(t, handler, slog.LevelWarn, "file failed")
	assert.Equal(t, job.ID, failedLog.Attrs["job_id"])
	assert.Equal(t, "bad.parquet", failedLog.Attrs["file"])
	assert.Equal(t, "corrupt_footer", failedLog.Attrs["kind"])
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "batch completed")
	testutil.AssertNoErrors(t, handler)
}

// nullsWithoutValuesFile declares five nulls on a name chunk holding no values
func nullsWithoutValuesFile() []byte {
	meta := testutil.SampleMetaData(1)
	md := meta.RowGroups[0].Columns[1].MetaData
	md.NumValues = 0
	md.Statistics.NullCount = testutil.Ptr[int64](5)
	return testutil.BuildFile(testutil.EncodeFileMetaData(meta))
}

func TestRun_AnomalousFileDoesNotFailBatch(t *testing.T) {
	orch, _ := newTestOrchestrator(t, DefaultConfig())

	var job *Job
	var err error
	require.NotPanics(t, func() {
		job, err = orch.Run(context.Background(), []files.Source{
			files.FromBytes("good.parquet", testutil.SampleFile(2)),
			files.FromBytes("odd.parquet", nullsWithoutValuesFile()),
			files.FromBytes("also-good.parquet", testutil.SampleFile(1)),
		})
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Document)
	assert.Equal(t, 3, job.Result.Succeeded())

	odd := job.Result.Entries[1].Report
	require.NotNil(t, odd)
	assert.Contains(t, odd.Columns[1].Anomalies, "null count 5 exceeds value count 0")

	fields := job.Document.Sheet(exporter.SheetFields)
	require.NotNil(t, fields)
	assert.Len(t, fields.Rows, 9)
}

func TestRun_PreservesOrderUnderParallelism(t *testing.T) {
	const n = 16
	sources := make([]files.Source, n)
	for i := range sources {
		data := testutil.SampleFile(1 + i%3)
		// later files finish first
		reader := slowReader{r: bytes.NewReader(data), delay: time.Duration(n-i) * time.Millisecond}
		sources[i] = files.NewSource(fmt.Sprintf("part-%02d.parquet", i), int64(len(data)), reader)
	}

	orch, _ := newTestOrchestrator(t, Config{Workers: 8})
	job, err := orch.Run(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, job.Result.Entries, n)
	for i, entry := range job.Result.Entries {
		assert.Equal(t, i, entry.Index)
		assert.Equal(t, fmt.Sprintf("part-%02d.parquet", i), entry.FileName)
		require.True(t, entry.OK(), entry.FileName)
		assert.Len(t, entry.Report.RowGroups, 1+i%3)
	}
}

func TestRun_RejectsInvalidBatch(t *testing.T) {
	tests := []struct {
		name      string
		sources   []files.Source
		wantErr   error
		wantFiles []string
	}{
		{
			name:    "empty batch",
			wantErr: validation.ErrEmptyBatch,
		},
		{
			name: "unsupported extension",
			sources: []files.Source{
				files.FromBytes("ok.parquet", testutil.SampleFile(1)),
				files.FromBytes("notes.csv", []byte("a,b")),
			},
			wantErr:   validation.ErrUnsupportedExtension,
			wantFiles: []string{"notes.csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryJobStore(time.Hour, 10)
			orch, _ := newTestOrchestrator(t, DefaultConfig(), WithJobStore(store))

			job, err := orch.Run(context.Background(), tt.sources)
			assert.Nil(t, job)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, validation.IsValidationError(err))
			assert.Empty(t, store.List(), "rejected batches create no job")

			if tt.wantFiles != nil {
				var ve *validation.ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, tt.wantFiles, ve.Files)
			}
		})
	}
}

func TestRun_FailureStages(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantStage domain.Stage
		wantKind  string
	}{
		{name: "truncated", data: []byte("PAR1"), wantStage: domain.StageLocate, wantKind: "truncated"},
		{name: "bad magic", data: bytes.Repeat([]byte("x"), 32), wantStage: domain.StageLocate, wantKind: "bad_magic"},
		{name: "corrupt footer", data: corruptFooterFile(), wantStage: domain.StageDecode, wantKind: "corrupt_footer"},
		{name: "schema mismatch", data: normalizeFailureFile(), wantStage: domain.StageNormalize, wantKind: "invalid_row_group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, _ := newTestOrchestrator(t, DefaultConfig())
			job, err := orch.Run(context.Background(), []files.Source{files.FromBytes("f.parquet", tt.data)})
			require.NoError(t, err)

			assert.Equal(t, domain.JobStatusCompleted, job.Status)
			require.Len(t, job.Result.Entries, 1)
			failure := job.Result.Entries[0].Failure
			require.NotNil(t, failure)
			assert.Equal(t, tt.wantStage, failure.Stage)
			assert.Equal(t, tt.wantKind, failure.Kind)
			assert.NotEmpty(t, failure.Reason)
			assert.NotNil(t, job.Document, "all-failed batches still produce a document")
		})
	}
}

func TestRun_PerFileTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	orch, _ := newTestOrchestrator(t, Config{Workers: 2, FileTimeout: 50 * time.Millisecond})
	job, err := orch.Run(context.Background(), []files.Source{
		files.NewSource("stuck.parquet", 1024, blockingReader{release: release}),
		files.FromBytes("fine.parquet", testutil.SampleFile(1)),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	stuck := job.Result.Entries[0]
	require.NotNil(t, stuck.Failure)
	assert.Equal(t, domain.StageDecode, stuck.Failure.Stage)
	assert.Equal(t, KindTimeout, stuck.Failure.Kind)
	assert.True(t, job.Result.Entries[1].OK())
}

func TestRun_Cancellation(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	store := &recordingStore{MemoryJobStore: NewMemoryJobStore(time.Hour, 10)}
	orch, _ := newTestOrchestrator(t, Config{Workers: 1, FileTimeout: time.Minute}, WithJobStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	job, err := orch.Run(ctx, []files.Source{
		files.NewSource("stuck.parquet", 1024, blockingReader{release: release}),
		files.FromBytes("never.parquet", testutil.SampleFile(1)),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrJobCancelled)

	require.NotNil(t, job)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)
	assert.Nil(t, job.Document)
	assert.Nil(t, job.Result)

	stored, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, stored.Status)
	assert.Equal(t, []domain.JobStatus{
		domain.JobStatusReceived,
		domain.JobStatusProcessing,
		domain.JobStatusCancelled,
	}, store.statuses)
}

func TestRun_AlreadyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch, _ := newTestOrchestrator(t, DefaultConfig())
	job, err := orch.Run(ctx, []files.Source{files.FromBytes("a.parquet", testutil.SampleFile(1))})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)
	assert.Nil(t, job.Document)
}

func TestRun_RecoversPanics(t *testing.T) {
	orch, handler := newTestOrchestrator(t, DefaultConfig())
	job, err := orch.Run(context.Background(), []files.Source{
		files.NewSource("boom.parquet", 64, panicReader{}),
		files.FromBytes("ok.parquet", testutil.SampleFile(1)),
	})
	require.NoError(t, err)

	failure := job.Result.Entries[0].Failure
	require.NotNil(t, failure)
	assert.Equal(t, KindPanic, failure.Kind)
	assert.Equal(t, domain.StageLocate, failure.Stage)
	assert.Contains(t, failure.Reason, "reader exploded")
	assert.True(t, job.Result.Entries[1].OK())
	testutil.AssertLogAttr(t, handler, "kind", KindPanic)
}

func TestRun_DuplicateNamesAreIndependent(t *testing.T) {
	orch, _ := newTestOrchestrator(t, DefaultConfig())
	job, err := orch.Run(context.Background(), []files.Source{
		files.FromBytes("same.parquet", testutil.SampleFile(1)),
		files.FromBytes("same.parquet", corruptFooterFile()),
	})
	require.NoError(t, err)

	require.Len(t, job.Result.Entries, 2)
	assert.True(t, job.Result.Entries[0].OK())
	assert.False(t, job.Result.Entries[1].OK())
	assert.Len(t, job.Document.Sheet(exporter.SheetSummary).Rows, 2)
}

func TestRun_PublishesStateChanges(t *testing.T) {
	store := &recordingStore{MemoryJobStore: NewMemoryJobStore(time.Hour, 10)}
	orch, _ := newTestOrchestrator(t, DefaultConfig(),
		WithJobStore(store),
		WithIDGenerator(func() string { return "job-1" }))

	job, err := orch.Run(context.Background(), []files.Source{files.FromBytes("a.parquet", testutil.SampleFile(1))})
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)

	assert.Equal(t, []domain.JobStatus{
		domain.JobStatusReceived,
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
	}, store.statuses)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, "job-1", latest.ID)
	assert.Same(t, job.Document, latest.Document)
}

func TestRun_Deterministic(t *testing.T) {
	sources := func() []files.Source {
		return []files.Source{
			files.FromBytes("a.parquet", testutil.SampleFile(3)),
			files.FromBytes("b.parquet", corruptFooterFile()),
		}
	}
	orch, _ := newTestOrchestrator(t, Config{Workers: 4})

	first, err := orch.Run(context.Background(), sources())
	require.NoError(t, err)
	second, err := orch.Run(context.Background(), sources())
	require.NoError(t, err)

	assert.Equal(t, first.Document, second.Document)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRun_RecordsMetricsAndSpans(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.CreateExtractionMetrics(provider.Meter("test"))
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	orch, _ := newTestOrchestrator(t, DefaultConfig(), WithMetrics(metrics), WithTracer(tp.Tracer("test")))
	_, err = orch.Run(context.Background(), []files.Source{
		files.FromBytes("a.parquet", testutil.SampleFile(1)),
		files.FromBytes("b.parquet", testutil.SampleFile(1)),
		files.FromBytes("c.parquet", []byte("PAR1")),
	})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	processed := map[string]int64{}
	var failures int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch m.Name {
				case "files_processed_total":
					status, _ := dp.Attributes.Value("status")
					processed[status.AsString()] += dp.Value
				case "file_failures_total":
					failures += dp.Value
				}
			}
		}
	}
	assert.Equal(t, map[string]int64{"ok": 2, "failed": 1}, processed)
	assert.Equal(t, int64(1), failures)

	spans := recorder.Ended()
	names := map[string]int{}
	for _, s := range spans {
		names[s.Name()]++
	}
	assert.Equal(t, 1, names["extraction.batch"])
	assert.Equal(t, 3, names["extraction.file"])
}

func TestExtractAndReport(t *testing.T) {
	doc, result, err := ExtractAndReport(context.Background(), []files.Source{
		files.FromBytes("a.parquet", testutil.SampleFile(1)),
	})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 1, result.Succeeded())
	assert.NotNil(t, doc.Sheet(exporter.SheetFields))

	_, _, err = ExtractAndReport(context.Background(), nil)
	assert.ErrorIs(t, err, validation.ErrEmptyBatch)
}

func TestBuildReport_RecoversPanics(t *testing.T) {
	broken := &domain.FileReport{
		FileName: "broken.parquet",
		Schema:   &domain.SchemaNode{Name: "schema", Children: []*domain.SchemaNode{nil}},
	}

	doc, err := buildReport(domain.BatchResult{Entries: []domain.FileOutcome{
		{FileName: "broken.parquet", Report: broken},
	}})
	assert.Nil(t, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")
}

func TestStageFor(t *testing.T) {
	assert.Equal(t, domain.StageDecode, stageFor(errors.New("plain")))
}

func TestConfigDefaults(t *testing.T) {
	orch, _ := newTestOrchestrator(t, Config{})
	cfg := orch.Config()
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultFileTimeout, cfg.FileTimeout)
	assert.Equal(t, []string{validation.DefaultExtension}, cfg.AllowedExtensions)
}
