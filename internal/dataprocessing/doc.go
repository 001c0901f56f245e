// Package dataprocessing turns decoded Parquet footers into report records.
//
// Normalize rebuilds the schema tree in declared order, keeps one
// ColumnChunkStats per row group and column, and decodes min/max statistics
// into typed domain values:
//
//	block, meta, err := locator.ReadMetaData(r, size)
//	report, err := dataprocessing.Normalize(name, size, block, meta)
//
// Values that cannot be read under their declared physical or logical type
// are kept as raw bytes and the column is marked unreliable. Null and
// distinct counts that the writer omitted stay nil.
//
// SummarizeFields derives the per-field view used by the Fields sheet,
// merging row groups and adding observations such as likely keys.
package dataprocessing
