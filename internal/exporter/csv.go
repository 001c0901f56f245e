package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"pqmeta/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVEncoder writes a single sheet of a Document as CSV
type CSVEncoder struct {
	Sheet     string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// NewCSVEncoder creates a CSV encoder for the named sheet with a BOM prefix
func NewCSVEncoder(sheet string) *CSVEncoder {
	return &CSVEncoder{Sheet: sheet, BOMPrefix: true}
}

// Format returns csv
func (e *CSVEncoder) Format() domain.ReportFormat {
	return domain.ReportFormatCSV
}

// Encode writes the header and rows of the configured sheet
func (e *CSVEncoder) Encode(w io.Writer, doc *Document) error {
	if doc == nil {
		return ErrEmptyBatch
	}
	sheet := doc.Sheet(e.Sheet)
	if sheet == nil {
		return fmt.Errorf("document has no sheet %q", e.Sheet)
	}

	if e.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(sheet.Headers()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(sheet.Columns))
	for i, row := range sheet.Rows {
		for c := range record {
			record[c] = ""
			if c < len(row) {
				record[c] = row[c].Text()
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
