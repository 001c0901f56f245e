package operations

import "pqmeta/pkg/contracts/domain"

// Extraction is the outcome of one file: either a report or a failure
type Extraction struct {
	Index    int
	FileName string
	Size     int64
	Report   *domain.FileReport
	Failure  *domain.FailureRecord
}

// Aggregate folds extractions into a BatchResult. Entries keep the order of
// items; nothing is sorted or de-duplicated.
func Aggregate(items []Extraction) domain.BatchResult {
	entries := make([]domain.FileOutcome, len(items))
	for i, it := range items {
		out := domain.FileOutcome{
			Index:    it.Index,
			FileName: it.FileName,
			Size:     it.Size,
		}
		switch {
		case it.Failure != nil:
			out.Failure = it.Failure
		case it.Report != nil:
			out.Report = it.Report
		default:
			out.Failure = &domain.FailureRecord{
				Stage:  domain.StageDecode,
				Reason: "file produced no result",
			}
		}
		entries[i] = out
	}
	return domain.BatchResult{Entries: entries}
}
