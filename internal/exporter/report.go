package exporter

import (
	"errors"
	"sort"
	"strings"

	"pqmeta/internal/dataprocessing"
	"pqmeta/pkg/contracts/domain"
)

// Sheet names in document order
const (
	SheetSummary = "Summary"
	SheetColumns = "Columns"
	SheetFields  = "Fields"
)

const (
	statusOK     = "ok"
	statusFailed = "failed"
)

// RenderError reports a batch that cannot be rendered
type RenderError struct {
	Kind    string
	Message string
}

func (e *RenderError) Error() string {
	return "render: " + e.Message
}

// Is matches render errors of the same kind
func (e *RenderError) Is(target error) bool {
	t, ok := target.(*RenderError)
	return ok && t.Kind == e.Kind
}

// ErrEmptyBatch is returned by BuildReport for a batch with no entries
var ErrEmptyBatch = &RenderError{Kind: "empty_batch", Message: "batch has no entries"}

// IsRenderError reports whether err is a *RenderError
func IsRenderError(err error) bool {
	var re *RenderError
	return errors.As(err, &re)
}

var summaryColumns = []Column{
	{Header: "File", Width: 40},
	{Header: "Status", Width: 10},
	{Header: "Rows", Width: 14},
	{Header: "Size", Width: 14},
	{Header: "Columns", Width: 10},
	{Header: "Row Groups", Width: 12},
	{Header: "Created By", Width: 36},
	{Header: "Failed Stage", Width: 14},
	{Header: "Failure Reason", Width: 60},
	{Header: "Anomalies", Width: 60},
}

var columnColumns = []Column{
	{Header: "File", Width: 40},
	{Header: "Row Group", Width: 10},
	{Header: "Column Index", Width: 12},
	{Header: "Column", Width: 30},
	{Header: "Physical Type", Width: 22},
	{Header: "Logical Type", Width: 24},
	{Header: "Encodings", Width: 24},
	{Header: "Codec", Width: 12},
	{Header: "Compressed Size", Width: 16},
	{Header: "Uncompressed Size", Width: 18},
	{Header: "Values", Width: 12},
	{Header: "Nulls", Width: 12},
	{Header: "Distinct", Width: 12},
	{Header: "Min", Width: 30},
	{Header: "Max", Width: 30},
	{Header: "Stats Unreliable", Width: 16},
	{Header: "Anomalies", Width: 60},
}

var fieldColumns = []Column{
	{Header: "File", Width: 40},
	{Header: "Field", Width: 30},
	{Header: "Physical Type", Width: 22},
	{Header: "Logical Type", Width: 24},
	{Header: "Repetition", Width: 12},
	{Header: "Depth", Width: 8},
	{Header: "Values", Width: 12},
	{Header: "Nulls", Width: 12},
	{Header: "Null %", Width: 10},
	{Header: "Observations", Width: 60},
	{Header: "Description", Width: 40},
}

// BuildReport renders a batch into the Summary, Columns and Fields sheets.
// Failed files only appear in Summary. The result depends only on the input.
func BuildReport(batch domain.BatchResult) (*Document, error) {
	if batch.Len() == 0 {
		return nil, ErrEmptyBatch
	}

	summary := Sheet{Name: SheetSummary, Columns: summaryColumns}
	columns := Sheet{Name: SheetColumns, Columns: columnColumns}
	fields := Sheet{Name: SheetFields, Columns: fieldColumns}

	var keyed []keyedRow
	for pos, entry := range batch.Entries {
		summary.Rows = append(summary.Rows, summaryRow(entry))
		if !entry.OK() {
			continue
		}
		for _, cs := range entry.Report.Columns {
			keyed = append(keyed, keyedRow{
				file:   pos,
				group:  cs.RowGroup,
				column: cs.ColumnIndex,
				row:    columnRow(entry.FileName, cs),
			})
		}
		for _, fs := range dataprocessing.SummarizeFields(entry.Report) {
			fields.Rows = append(fields.Rows, fieldRow(entry.FileName, fs))
		}
	}

	sort.SliceStable(keyed, func(i, j int) bool {
		a, b := keyed[i], keyed[j]
		if a.file != b.file {
			return a.file < b.file
		}
		if a.group != b.group {
			return a.group < b.group
		}
		return a.column < b.column
	})
	for _, k := range keyed {
		columns.Rows = append(columns.Rows, k.row)
	}

	return &Document{Sheets: []Sheet{summary, columns, fields}}, nil
}

// keyedRow carries the ordering key of a Columns row: submission position,
// row group, then column index
type keyedRow struct {
	file, group, column int
	row                 Row
}

func summaryRow(e domain.FileOutcome) Row {
	if !e.OK() {
		stage, reason := "", ""
		if e.Failure != nil {
			stage, reason = string(e.Failure.Stage), e.Failure.Reason
		}
		return Row{
			String(e.FileName), String(statusFailed),
			Empty(), Int(e.Size), Empty(), Empty(), Empty(),
			String(stage), String(reason), Empty(),
		}
	}
	r := e.Report
	return Row{
		String(r.FileName),
		String(statusOK),
		Int(r.RowCount),
		Int(r.TotalSize),
		Int(int64(r.ColumnCount())),
		Int(int64(len(r.RowGroups))),
		String(r.CreatedBy),
		Empty(),
		Empty(),
		String(strings.Join(r.Anomalies, "; ")),
	}
}

func columnRow(file string, cs domain.ColumnChunkStats) Row {
	return Row{
		String(file),
		Int(int64(cs.RowGroup)),
		Int(int64(cs.ColumnIndex)),
		String(cs.Path),
		String(string(cs.PhysicalType)),
		String(cs.LogicalType.String()),
		String(cs.EncodingList()),
		String(cs.Codec),
		Int(cs.CompressedSize),
		Int(cs.UncompressedSize),
		Int(cs.ValueCount),
		OptionalInt(cs.NullCount),
		OptionalInt(cs.DistinctCount),
		bound(cs.Min, cs.MinText),
		bound(cs.Max, cs.MaxText),
		Bool(cs.StatsUnreliable),
		String(strings.Join(cs.Anomalies, "; ")),
	}
}

// bound renders a statistic that the writer may have omitted
func bound(v domain.Value, text string) Cell {
	if v == nil {
		return Unknown()
	}
	return String(text)
}

func fieldRow(file string, fs domain.FieldSummary) Row {
	return Row{
		String(file),
		String(fs.Path),
		String(string(fs.PhysicalType)),
		String(fs.LogicalType),
		String(string(fs.Repetition)),
		Int(int64(fs.Depth)),
		Int(fs.ValueCount),
		OptionalInt(fs.NullCount),
		OptionalFloat(fs.NullPercent),
		String(strings.Join(fs.Observations, "; ")),
		Empty(),
	}
}
