// Package operations runs extraction jobs: it validates a batch of sources,
// extracts footer metadata from every file on a bounded worker pool, folds
// the per-file outcomes into a BatchResult in submission order and builds
// the report document once all files are done.
//
// A file that cannot be read, decoded or normalized becomes a FailureRecord
// and never aborts the batch. Cancelling the context abandons in-flight work
// and leaves the job without a document.
//
//	orch := operations.NewOrchestrator(operations.DefaultConfig(), logger)
//	job, err := orch.Run(ctx, sources)
//	if err != nil {
//	    return err
//	}
//	doc := job.Document
package operations
