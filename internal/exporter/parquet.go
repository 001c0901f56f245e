package exporter

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"pqmeta/pkg/contracts/domain"
)

// ColumnRecord is one row of the Columns sheet in Parquet form. Unknown
// counts and absent bounds are written as nulls.
type ColumnRecord struct {
	File             string  `parquet:"file"`
	RowGroup         int64   `parquet:"row_group"`
	ColumnIndex      int64   `parquet:"column_index"`
	Column           string  `parquet:"column"`
	PhysicalType     string  `parquet:"physical_type"`
	LogicalType      string  `parquet:"logical_type"`
	Encodings        string  `parquet:"encodings"`
	Codec            string  `parquet:"codec"`
	CompressedSize   int64   `parquet:"compressed_size"`
	UncompressedSize int64   `parquet:"uncompressed_size"`
	Values           int64   `parquet:"values"`
	Nulls            *int64  `parquet:"nulls,optional"`
	Distinct         *int64  `parquet:"distinct,optional"`
	Min              *string `parquet:"min,optional"`
	Max              *string `parquet:"max,optional"`
	StatsUnreliable  bool    `parquet:"stats_unreliable"`
	Anomalies        string  `parquet:"anomalies"`
}

// ParquetEncoder writes the Columns sheet as a Parquet file
type ParquetEncoder struct{}

// NewParquetEncoder creates a Parquet encoder
func NewParquetEncoder() *ParquetEncoder {
	return &ParquetEncoder{}
}

// Format returns parquet
func (e *ParquetEncoder) Format() domain.ReportFormat {
	return domain.ReportFormatParquet
}

// Encode writes one ColumnRecord per Columns row
func (e *ParquetEncoder) Encode(w io.Writer, doc *Document) error {
	if doc == nil {
		return ErrEmptyBatch
	}
	sheet := doc.Sheet(SheetColumns)
	if sheet == nil {
		return fmt.Errorf("document has no sheet %q", SheetColumns)
	}

	records, err := columnRecords(sheet)
	if err != nil {
		return err
	}

	pw := parquet.NewGenericWriter[ColumnRecord](w)
	if len(records) > 0 {
		if _, err := pw.Write(records); err != nil {
			pw.Close()
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func columnRecords(sheet *Sheet) ([]ColumnRecord, error) {
	index := make(map[string]int, len(sheet.Columns))
	for i, c := range sheet.Columns {
		index[c.Header] = i
	}
	for _, h := range []string{"File", "Row Group", "Column Index", "Column", "Values"} {
		if _, ok := index[h]; !ok {
			return nil, fmt.Errorf("columns sheet lacks %q", h)
		}
	}

	cell := func(row Row, header string) Cell {
		i, ok := index[header]
		if !ok || i >= len(row) {
			return Empty()
		}
		return row[i]
	}

	out := make([]ColumnRecord, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		out = append(out, ColumnRecord{
			File:             cell(row, "File").Str,
			RowGroup:         cell(row, "Row Group").Int,
			ColumnIndex:      cell(row, "Column Index").Int,
			Column:           cell(row, "Column").Str,
			PhysicalType:     cell(row, "Physical Type").Str,
			LogicalType:      cell(row, "Logical Type").Str,
			Encodings:        cell(row, "Encodings").Str,
			Codec:            cell(row, "Codec").Str,
			CompressedSize:   cell(row, "Compressed Size").Int,
			UncompressedSize: cell(row, "Uncompressed Size").Int,
			Values:           cell(row, "Values").Int,
			Nulls:            optionalInt(cell(row, "Nulls")),
			Distinct:         optionalInt(cell(row, "Distinct")),
			Min:              optionalString(cell(row, "Min")),
			Max:              optionalString(cell(row, "Max")),
			StatsUnreliable:  cell(row, "Stats Unreliable").Bool,
			Anomalies:        cell(row, "Anomalies").Str,
		})
	}
	return out, nil
}

func optionalInt(c Cell) *int64 {
	if c.Kind != CellInt {
		return nil
	}
	v := c.Int
	return &v
}

func optionalString(c Cell) *string {
	if c.Kind != CellString {
		return nil
	}
	v := c.Str
	return &v
}
