package domain

// Stage names the pipeline step where a file failed
type Stage string

const (
	StageValidate  Stage = "validate"
	StageLocate    Stage = "locate"
	StageDecode    Stage = "decode"
	StageNormalize Stage = "normalize"
)

// FailureRecord describes why a single file produced no report
type FailureRecord struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
	Kind   string `json:"kind,omitempty"`
}

// FileOutcome is the result for one submitted file. Exactly one of Report
// and Failure is set.
type FileOutcome struct {
	Index    int            `json:"index"`
	FileName string         `json:"file_name"`
	Size     int64          `json:"size"`
	Report   *FileReport    `json:"report,omitempty"`
	Failure  *FailureRecord `json:"failure,omitempty"`
}

// OK reports whether the file was processed successfully
func (o FileOutcome) OK() bool {
	return o.Report != nil && o.Failure == nil
}

// BatchResult holds one outcome per submitted file in submission order
type BatchResult struct {
	Entries []FileOutcome `json:"entries"`
}

// Len returns the number of entries
func (b BatchResult) Len() int {
	return len(b.Entries)
}

// Succeeded returns the number of files with a report
func (b BatchResult) Succeeded() int {
	n := 0
	for _, e := range b.Entries {
		if e.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of files with a failure record
func (b BatchResult) Failed() int {
	return len(b.Entries) - b.Succeeded()
}
