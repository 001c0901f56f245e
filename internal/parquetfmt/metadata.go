package parquetfmt

import "fmt"

// Type is the physical type of a leaf column
type Type int32

const (
	TypeBoolean           Type = 0
	TypeInt32             Type = 1
	TypeInt64             Type = 2
	TypeInt96             Type = 3
	TypeFloat             Type = 4
	TypeDouble            Type = 5
	TypeByteArray         Type = 6
	TypeFixedLenByteArray Type = 7
)

func (t Type) String() string {
	switch t {
	case TypeBoolean:
		return "BOOLEAN"
	case TypeInt32:
		return "INT32"
	case TypeInt64:
		return "INT64"
	case TypeInt96:
		return "INT96"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeByteArray:
		return "BYTE_ARRAY"
	case TypeFixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return fmt.Sprintf("TYPE(%d)", int32(t))
	}
}

// FieldRepetitionType is the repetition of a schema element
type FieldRepetitionType int32

const (
	Required FieldRepetitionType = 0
	Optional FieldRepetitionType = 1
	Repeated FieldRepetitionType = 2
)

func (r FieldRepetitionType) String() string {
	switch r {
	case Required:
		return "REQUIRED"
	case Optional:
		return "OPTIONAL"
	case Repeated:
		return "REPEATED"
	default:
		return fmt.Sprintf("REPETITION(%d)", int32(r))
	}
}

// ConvertedType is the legacy logical annotation
type ConvertedType int32

const (
	ConvertedUTF8            ConvertedType = 0
	ConvertedMap             ConvertedType = 1
	ConvertedMapKeyValue     ConvertedType = 2
	ConvertedList            ConvertedType = 3
	ConvertedEnum            ConvertedType = 4
	ConvertedDecimal         ConvertedType = 5
	ConvertedDate            ConvertedType = 6
	ConvertedTimeMillis      ConvertedType = 7
	ConvertedTimeMicros      ConvertedType = 8
	ConvertedTimestampMillis ConvertedType = 9
	ConvertedTimestampMicros ConvertedType = 10
	ConvertedUint8           ConvertedType = 11
	ConvertedUint16          ConvertedType = 12
	ConvertedUint32          ConvertedType = 13
	ConvertedUint64          ConvertedType = 14
	ConvertedInt8            ConvertedType = 15
	ConvertedInt16           ConvertedType = 16
	ConvertedInt32           ConvertedType = 17
	ConvertedInt64           ConvertedType = 18
	ConvertedJSON            ConvertedType = 19
	ConvertedBSON            ConvertedType = 20
	ConvertedInterval        ConvertedType = 21
)

var convertedNames = map[ConvertedType]string{
	ConvertedUTF8:            "UTF8",
	ConvertedMap:             "MAP",
	ConvertedMapKeyValue:     "MAP_KEY_VALUE",
	ConvertedList:            "LIST",
	ConvertedEnum:            "ENUM",
	ConvertedDecimal:         "DECIMAL",
	ConvertedDate:            "DATE",
	ConvertedTimeMillis:      "TIME_MILLIS",
	ConvertedTimeMicros:      "TIME_MICROS",
	ConvertedTimestampMillis: "TIMESTAMP_MILLIS",
	ConvertedTimestampMicros: "TIMESTAMP_MICROS",
	ConvertedUint8:           "UINT_8",
	ConvertedUint16:          "UINT_16",
	ConvertedUint32:          "UINT_32",
	ConvertedUint64:          "UINT_64",
	ConvertedInt8:            "INT_8",
	ConvertedInt16:           "INT_16",
	ConvertedInt32:           "INT_32",
	ConvertedInt64:           "INT_64",
	ConvertedJSON:            "JSON",
	ConvertedBSON:            "BSON",
	ConvertedInterval:        "INTERVAL",
}

func (c ConvertedType) String() string {
	if name, ok := convertedNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CONVERTED(%d)", int32(c))
}

// Encoding is a page encoding
type Encoding int32

var encodingNames = map[Encoding]string{
	0: "PLAIN",
	1: "GROUP_VAR_INT",
	2: "PLAIN_DICTIONARY",
	3: "RLE",
	4: "BIT_PACKED",
	5: "DELTA_BINARY_PACKED",
	6: "DELTA_LENGTH_BYTE_ARRAY",
	7: "DELTA_BYTE_ARRAY",
	8: "RLE_DICTIONARY",
	9: "BYTE_STREAM_SPLIT",
}

func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ENCODING(%d)", int32(e))
}

// CompressionCodec is the codec of a column chunk
type CompressionCodec int32

var codecNames = map[CompressionCodec]string{
	0: "UNCOMPRESSED",
	1: "SNAPPY",
	2: "GZIP",
	3: "LZO",
	4: "BROTLI",
	5: "LZ4",
	6: "ZSTD",
	7: "LZ4_RAW",
}

func (c CompressionCodec) String() string {
	if name, ok := codecNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODEC(%d)", int32(c))
}

// LogicalKind identifies the member set in a LogicalType union
type LogicalKind int

const (
	LogicalNone LogicalKind = iota
	LogicalString
	LogicalMap
	LogicalList
	LogicalEnum
	LogicalDecimal
	LogicalDate
	LogicalTime
	LogicalTimestamp
	LogicalInteger
	LogicalNull
	LogicalJSON
	LogicalBSON
	LogicalUUID
	LogicalFloat16
	LogicalVariant
	LogicalGeometry
	LogicalGeography
	// LogicalUnrecognized marks a union member added by a newer format
	// revision.
	LogicalUnrecognized
)

var logicalNames = [...]string{
	LogicalNone:         "",
	LogicalString:       "STRING",
	LogicalMap:          "MAP",
	LogicalList:         "LIST",
	LogicalEnum:         "ENUM",
	LogicalDecimal:      "DECIMAL",
	LogicalDate:         "DATE",
	LogicalTime:         "TIME",
	LogicalTimestamp:    "TIMESTAMP",
	LogicalInteger:      "INTEGER",
	LogicalNull:         "NULL",
	LogicalJSON:         "JSON",
	LogicalBSON:         "BSON",
	LogicalUUID:         "UUID",
	LogicalFloat16:      "FLOAT16",
	LogicalVariant:      "VARIANT",
	LogicalGeometry:     "GEOMETRY",
	LogicalGeography:    "GEOGRAPHY",
	LogicalUnrecognized: "UNRECOGNIZED",
}

func (k LogicalKind) String() string {
	if k >= 0 && int(k) < len(logicalNames) {
		return logicalNames[k]
	}
	return fmt.Sprintf("LOGICAL(%d)", int(k))
}

// TimeUnit is the unit of TIME and TIMESTAMP annotations
type TimeUnit int

const (
	UnitUnknown TimeUnit = iota
	UnitMillis
	UnitMicros
	UnitNanos
)

func (u TimeUnit) String() string {
	switch u {
	case UnitMillis:
		return "MILLIS"
	case UnitMicros:
		return "MICROS"
	case UnitNanos:
		return "NANOS"
	default:
		return "UNKNOWN"
	}
}

// DecimalType carries DECIMAL parameters
type DecimalType struct {
	Scale     int32
	Precision int32
}

// TimeType carries TIME and TIMESTAMP parameters
type TimeType struct {
	IsAdjustedToUTC bool
	Unit            TimeUnit
}

// IntType carries INTEGER parameters
type IntType struct {
	BitWidth int8
	IsSigned bool
}

// LogicalType is the decoded LogicalType union. Only the parameter struct
// matching Kind is set.
type LogicalType struct {
	Kind      LogicalKind
	Decimal   *DecimalType
	Time      *TimeType
	Timestamp *TimeType
	Integer   *IntType
}

// SchemaElement is one node of the flattened depth-first schema
type SchemaElement struct {
	Type           *Type
	TypeLength     *int32
	RepetitionType *FieldRepetitionType
	Name           string
	NumChildren    *int32
	ConvertedType  *ConvertedType
	Scale          *int32
	Precision      *int32
	FieldID        *int32
	LogicalType    *LogicalType
}

// Statistics holds per column chunk statistics. Byte fields are nil when
// absent; a present but empty value decodes to a non-nil empty slice.
type Statistics struct {
	Max             []byte
	Min             []byte
	NullCount       *int64
	DistinctCount   *int64
	MaxValue        []byte
	MinValue        []byte
	IsMaxValueExact *bool
	IsMinValueExact *bool
}

// KeyValue is an application defined metadata pair
type KeyValue struct {
	Key   string
	Value *string
}

// SortingColumn describes a sort order declared for a row group
type SortingColumn struct {
	ColumnIdx  int32
	Descending bool
	NullsFirst bool
}

// ColumnMetaData describes a column chunk
type ColumnMetaData struct {
	Type                  Type
	Encodings             []Encoding
	PathInSchema          []string
	Codec                 CompressionCodec
	NumValues             int64
	TotalUncompressedSize int64
	TotalCompressedSize   int64
	KeyValueMetadata      []KeyValue
	DataPageOffset        int64
	IndexPageOffset       *int64
	DictionaryPageOffset  *int64
	Statistics            *Statistics
	BloomFilterOffset     *int64
	BloomFilterLength     *int32
}

// ColumnChunk locates a column chunk and carries its metadata
type ColumnChunk struct {
	FilePath          *string
	FileOffset        int64
	MetaData          *ColumnMetaData
	OffsetIndexOffset *int64
	OffsetIndexLength *int32
	ColumnIndexOffset *int64
	ColumnIndexLength *int32
	// Encrypted is set when the chunk carries crypto metadata or an
	// encrypted copy of its ColumnMetaData.
	Encrypted bool
}

// RowGroup is a horizontal partition of the file
type RowGroup struct {
	Columns             []ColumnChunk
	TotalByteSize       int64
	NumRows             int64
	SortingColumns      []SortingColumn
	FileOffset          *int64
	TotalCompressedSize *int64
	Ordinal             *int16
}

// ColumnOrder is the decoded ColumnOrder union
type ColumnOrder struct {
	TypeDefined bool
}

// FileMetaData is the root of the footer
type FileMetaData struct {
	Version          int32
	Schema           []SchemaElement
	NumRows          int64
	RowGroups        []RowGroup
	KeyValueMetadata []KeyValue
	CreatedBy        *string
	ColumnOrders     []ColumnOrder
}
