package domain

import (
	"fmt"
	"strings"
)

// Repetition of a schema field
type Repetition string

const (
	RepetitionRequired Repetition = "REQUIRED"
	RepetitionOptional Repetition = "OPTIONAL"
	RepetitionRepeated Repetition = "REPEATED"
)

// LogicalType is the semantic annotation of a field. Only the parameters
// relevant to Name are set.
type LogicalType struct {
	Name            string `json:"name"`
	Scale           int32  `json:"scale,omitempty"`
	Precision       int32  `json:"precision,omitempty"`
	Unit            string `json:"unit,omitempty"`
	IsAdjustedToUTC bool   `json:"is_adjusted_to_utc,omitempty"`
	BitWidth        int    `json:"bit_width,omitempty"`
	IsSigned        bool   `json:"is_signed,omitempty"`
	// Legacy is set when the annotation came from a converted type only
	Legacy bool `json:"legacy,omitempty"`
}

// Logical type names
const (
	LogicalString    = "STRING"
	LogicalMap       = "MAP"
	LogicalList      = "LIST"
	LogicalEnum      = "ENUM"
	LogicalDecimal   = "DECIMAL"
	LogicalDate      = "DATE"
	LogicalTime      = "TIME"
	LogicalTimestamp = "TIMESTAMP"
	LogicalInteger   = "INTEGER"
	LogicalNull      = "NULL"
	LogicalJSON      = "JSON"
	LogicalBSON      = "BSON"
	LogicalUUID      = "UUID"
	LogicalFloat16   = "FLOAT16"
	LogicalVariant   = "VARIANT"
	LogicalGeometry  = "GEOMETRY"
	LogicalGeography = "GEOGRAPHY"
	LogicalInterval  = "INTERVAL"
	LogicalUnknown   = "UNRECOGNIZED"
)

// String renders the annotation the way it appears in report cells
func (l *LogicalType) String() string {
	if l == nil {
		return ""
	}
	switch l.Name {
	case LogicalDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", l.Precision, l.Scale)
	case LogicalTime, LogicalTimestamp:
		tz := "local"
		if l.IsAdjustedToUTC {
			tz = "UTC"
		}
		return fmt.Sprintf("%s(%s,%s)", l.Name, l.Unit, tz)
	case LogicalInteger:
		sign := "unsigned"
		if l.IsSigned {
			sign = "signed"
		}
		return fmt.Sprintf("INTEGER(%d,%s)", l.BitWidth, sign)
	default:
		return l.Name
	}
}

// SchemaNode is one field of a file schema. The root node is the schema
// message itself.
type SchemaNode struct {
	Name          string        `json:"name"`
	Path          string        `json:"path"`
	PhysicalType  PhysicalType  `json:"physical_type,omitempty"`
	TypeLength    *int32        `json:"type_length,omitempty"`
	LogicalType   *LogicalType  `json:"logical_type,omitempty"`
	ConvertedType string        `json:"converted_type,omitempty"`
	Repetition    Repetition    `json:"repetition,omitempty"`
	Depth         int           `json:"depth"`
	Ordinal       int           `json:"ordinal"`
	ColumnIndex   int           `json:"column_index"`
	FieldID       *int32        `json:"field_id,omitempty"`
	Children      []*SchemaNode `json:"children,omitempty"`
}

// IsLeaf reports whether the node is a primitive column
func (n *SchemaNode) IsLeaf() bool {
	return len(n.Children) == 0 && n.PhysicalType != ""
}

// Leaves returns the primitive columns in physical column order
func (n *SchemaNode) Leaves() []*SchemaNode {
	if n == nil {
		return nil
	}
	var out []*SchemaNode
	var walk func(*SchemaNode)
	walk = func(node *SchemaNode) {
		if node.IsLeaf() {
			out = append(out, node)
			return
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// ColumnChunkStats is the metadata of one column chunk in one row group
type ColumnChunkStats struct {
	Path                 string       `json:"path"`
	ColumnIndex          int          `json:"column_index"`
	RowGroup             int          `json:"row_group"`
	PhysicalType         PhysicalType `json:"physical_type"`
	LogicalType          *LogicalType `json:"logical_type,omitempty"`
	Encodings            []string     `json:"encodings"`
	Codec                string       `json:"codec"`
	CompressedSize       int64        `json:"compressed_size"`
	UncompressedSize     int64        `json:"uncompressed_size"`
	ValueCount           int64        `json:"value_count"`
	NullCount            *int64       `json:"null_count"`
	DistinctCount        *int64       `json:"distinct_count"`
	Min                  Value        `json:"-"`
	Max                  Value        `json:"-"`
	MinText              string       `json:"min,omitempty"`
	MaxText              string       `json:"max,omitempty"`
	StatsUnreliable      bool         `json:"stats_unreliable"`
	Anomalies            []string     `json:"anomalies,omitempty"`
	DataPageOffset       int64        `json:"data_page_offset"`
	DictionaryPageOffset *int64       `json:"dictionary_page_offset,omitempty"`
}

// HasBounds reports whether a min/max pair was present
func (c *ColumnChunkStats) HasBounds() bool {
	return c.Min != nil || c.Max != nil
}

// EncodingList joins encodings for display
func (c *ColumnChunkStats) EncodingList() string {
	return strings.Join(c.Encodings, ", ")
}

// RowGroupInfo summarizes a row group
type RowGroupInfo struct {
	Index               int    `json:"index"`
	NumRows             int64  `json:"num_rows"`
	TotalByteSize       int64  `json:"total_byte_size"`
	TotalCompressedSize *int64 `json:"total_compressed_size,omitempty"`
	ColumnCount         int    `json:"column_count"`
	Ordinal             *int16 `json:"ordinal,omitempty"`
}

// KeyValue is a file level metadata entry
type KeyValue struct {
	Key   string  `json:"key"`
	Value *string `json:"value,omitempty"`
}

// FileReport is the normalized metadata of one successfully processed file
type FileReport struct {
	FileName         string             `json:"file_name"`
	RowCount         int64              `json:"row_count"`
	TotalSize        int64              `json:"total_size"`
	FooterLength     int64              `json:"footer_length"`
	FormatVersion    int32              `json:"format_version"`
	CreatedBy        string             `json:"created_by,omitempty"`
	RowGroups        []RowGroupInfo     `json:"row_groups"`
	KeyValueMetadata []KeyValue         `json:"key_value_metadata,omitempty"`
	Schema           *SchemaNode        `json:"schema"`
	Columns          []ColumnChunkStats `json:"columns"`
	Anomalies        []string           `json:"anomalies,omitempty"`
}

// ColumnCount returns the number of leaf columns
func (r *FileReport) ColumnCount() int {
	return len(r.Schema.Leaves())
}

// FieldSummary merges a leaf column's statistics across row groups
type FieldSummary struct {
	Path         string       `json:"path"`
	ColumnIndex  int          `json:"column_index"`
	PhysicalType PhysicalType `json:"physical_type"`
	LogicalType  string       `json:"logical_type,omitempty"`
	Repetition   Repetition   `json:"repetition"`
	Depth        int          `json:"depth"`
	ValueCount   int64        `json:"value_count"`
	// NullCount is nil unless every row group reported one
	NullCount    *int64   `json:"null_count"`
	NullPercent  *float64 `json:"null_percent"`
	Observations []string `json:"observations,omitempty"`
}
