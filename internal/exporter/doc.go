// Package exporter renders batch results into spreadsheet documents.
//
// BuildReport turns a domain.BatchResult into a Document with three sheets:
//
//   - Summary: one row per submitted file, failed files included
//   - Columns: one row per row group and column chunk
//   - Fields: one row per leaf column with merged statistics
//
// A Document holds typed cells and knows nothing about file formats. The
// encoders write it out:
//
//	doc, err := exporter.BuildReport(batch)
//	enc, err := exporter.EncoderFor(domain.ReportFormatExcel)
//	err = enc.Encode(w, doc)
//
// XLSXEncoder writes every sheet with a styled, frozen header row.
// CSVEncoder writes one sheet with a UTF-8 BOM for Excel compatibility.
// ParquetEncoder writes the Columns sheet as a Parquet file.
package exporter
