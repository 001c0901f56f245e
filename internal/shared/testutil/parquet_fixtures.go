package testutil

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/parquet-go/parquet-go"

	"pqmeta/internal/parquetfmt"
)

// EncodeFileMetaData serializes m with the compact protocol, writing only
// the optional fields that are set.
func EncodeFileMetaData(m *parquetfmt.FileMetaData) []byte {
	w := NewCompactWriter()
	w.I32(1, m.Version)
	w.List(2, WireStruct, len(m.Schema))
	for i := range m.Schema {
		encodeSchemaElement(w, &m.Schema[i])
	}
	w.I64(3, m.NumRows)
	w.List(4, WireStruct, len(m.RowGroups))
	for i := range m.RowGroups {
		encodeRowGroup(w, &m.RowGroups[i])
	}
	if m.KeyValueMetadata != nil {
		encodeKeyValues(w, 5, m.KeyValueMetadata)
	}
	if m.CreatedBy != nil {
		w.String(6, *m.CreatedBy)
	}
	if m.ColumnOrders != nil {
		w.List(7, WireStruct, len(m.ColumnOrders))
		for _, co := range m.ColumnOrders {
			w.BeginElem()
			if co.TypeDefined {
				w.BeginStruct(1).Stop()
			}
			w.Stop()
		}
	}
	w.Stop()
	return w.Bytes()
}

func encodeSchemaElement(w *CompactWriter, se *parquetfmt.SchemaElement) {
	w.BeginElem()
	if se.Type != nil {
		w.I32(1, int32(*se.Type))
	}
	if se.TypeLength != nil {
		w.I32(2, *se.TypeLength)
	}
	if se.RepetitionType != nil {
		w.I32(3, int32(*se.RepetitionType))
	}
	w.String(4, se.Name)
	if se.NumChildren != nil {
		w.I32(5, *se.NumChildren)
	}
	if se.ConvertedType != nil {
		w.I32(6, int32(*se.ConvertedType))
	}
	if se.Scale != nil {
		w.I32(7, *se.Scale)
	}
	if se.Precision != nil {
		w.I32(8, *se.Precision)
	}
	if se.FieldID != nil {
		w.I32(9, *se.FieldID)
	}
	if se.LogicalType != nil {
		w.BeginStruct(10)
		encodeLogicalType(w, se.LogicalType)
		w.Stop()
	}
	w.Stop()
}

var logicalFieldIDs = map[parquetfmt.LogicalKind]int16{
	parquetfmt.LogicalString: 1, parquetfmt.LogicalMap: 2, parquetfmt.LogicalList: 3,
	parquetfmt.LogicalEnum: 4, parquetfmt.LogicalDecimal: 5, parquetfmt.LogicalDate: 6,
	parquetfmt.LogicalTime: 7, parquetfmt.LogicalTimestamp: 8, parquetfmt.LogicalInteger: 10,
	parquetfmt.LogicalNull: 11, parquetfmt.LogicalJSON: 12, parquetfmt.LogicalBSON: 13,
	parquetfmt.LogicalUUID: 14, parquetfmt.LogicalFloat16: 15, parquetfmt.LogicalVariant: 16,
	parquetfmt.LogicalGeometry: 17, parquetfmt.LogicalGeography: 18,
}

func encodeLogicalType(w *CompactWriter, lt *parquetfmt.LogicalType) {
	id, ok := logicalFieldIDs[lt.Kind]
	if !ok {
		return
	}
	w.BeginStruct(id)
	switch lt.Kind {
	case parquetfmt.LogicalDecimal:
		w.I32(1, lt.Decimal.Scale)
		w.I32(2, lt.Decimal.Precision)
	case parquetfmt.LogicalTime:
		encodeTimeType(w, lt.Time)
	case parquetfmt.LogicalTimestamp:
		encodeTimeType(w, lt.Timestamp)
	case parquetfmt.LogicalInteger:
		w.I8(1, lt.Integer.BitWidth)
		w.Bool(2, lt.Integer.IsSigned)
	}
	w.Stop()
}

func encodeTimeType(w *CompactWriter, t *parquetfmt.TimeType) {
	w.Bool(1, t.IsAdjustedToUTC)
	w.BeginStruct(2)
	switch t.Unit {
	case parquetfmt.UnitMillis:
		w.BeginStruct(1).Stop()
	case parquetfmt.UnitMicros:
		w.BeginStruct(2).Stop()
	case parquetfmt.UnitNanos:
		w.BeginStruct(3).Stop()
	}
	w.Stop()
}

func encodeRowGroup(w *CompactWriter, rg *parquetfmt.RowGroup) {
	w.BeginElem()
	w.List(1, WireStruct, len(rg.Columns))
	for i := range rg.Columns {
		encodeColumnChunk(w, &rg.Columns[i])
	}
	w.I64(2, rg.TotalByteSize)
	w.I64(3, rg.NumRows)
	if rg.SortingColumns != nil {
		w.List(4, WireStruct, len(rg.SortingColumns))
		for _, sc := range rg.SortingColumns {
			w.BeginElem().I32(1, sc.ColumnIdx).Bool(2, sc.Descending).Bool(3, sc.NullsFirst).Stop()
		}
	}
	if rg.FileOffset != nil {
		w.I64(5, *rg.FileOffset)
	}
	if rg.TotalCompressedSize != nil {
		w.I64(6, *rg.TotalCompressedSize)
	}
	if rg.Ordinal != nil {
		w.I16(7, *rg.Ordinal)
	}
	w.Stop()
}

func encodeColumnChunk(w *CompactWriter, cc *parquetfmt.ColumnChunk) {
	w.BeginElem()
	if cc.FilePath != nil {
		w.String(1, *cc.FilePath)
	}
	w.I64(2, cc.FileOffset)
	if md := cc.MetaData; md != nil {
		w.BeginStruct(3)
		w.I32(1, int32(md.Type))
		w.List(2, WireI32, len(md.Encodings))
		for _, e := range md.Encodings {
			w.I32Elem(int32(e))
		}
		w.List(3, WireBinary, len(md.PathInSchema))
		for _, p := range md.PathInSchema {
			w.BinaryElem([]byte(p))
		}
		w.I32(4, int32(md.Codec))
		w.I64(5, md.NumValues)
		w.I64(6, md.TotalUncompressedSize)
		w.I64(7, md.TotalCompressedSize)
		if md.KeyValueMetadata != nil {
			encodeKeyValues(w, 8, md.KeyValueMetadata)
		}
		w.I64(9, md.DataPageOffset)
		if md.IndexPageOffset != nil {
			w.I64(10, *md.IndexPageOffset)
		}
		if md.DictionaryPageOffset != nil {
			w.I64(11, *md.DictionaryPageOffset)
		}
		if s := md.Statistics; s != nil {
			w.BeginStruct(12)
			if s.Max != nil {
				w.Binary(1, s.Max)
			}
			if s.Min != nil {
				w.Binary(2, s.Min)
			}
			if s.NullCount != nil {
				w.I64(3, *s.NullCount)
			}
			if s.DistinctCount != nil {
				w.I64(4, *s.DistinctCount)
			}
			if s.MaxValue != nil {
				w.Binary(5, s.MaxValue)
			}
			if s.MinValue != nil {
				w.Binary(6, s.MinValue)
			}
			if s.IsMaxValueExact != nil {
				w.Bool(7, *s.IsMaxValueExact)
			}
			if s.IsMinValueExact != nil {
				w.Bool(8, *s.IsMinValueExact)
			}
			w.Stop()
		}
		if md.BloomFilterOffset != nil {
			w.I64(14, *md.BloomFilterOffset)
		}
		if md.BloomFilterLength != nil {
			w.I32(15, *md.BloomFilterLength)
		}
		w.Stop()
	}
	if cc.OffsetIndexOffset != nil {
		w.I64(4, *cc.OffsetIndexOffset)
	}
	if cc.OffsetIndexLength != nil {
		w.I32(5, *cc.OffsetIndexLength)
	}
	if cc.ColumnIndexOffset != nil {
		w.I64(6, *cc.ColumnIndexOffset)
	}
	if cc.ColumnIndexLength != nil {
		w.I32(7, *cc.ColumnIndexLength)
	}
	w.Stop()
}

func encodeKeyValues(w *CompactWriter, id int16, kvs []parquetfmt.KeyValue) {
	w.List(id, WireStruct, len(kvs))
	for _, kv := range kvs {
		w.BeginElem().String(1, kv.Key)
		if kv.Value != nil {
			w.String(2, *kv.Value)
		}
		w.Stop()
	}
}

// BuildFile wraps a serialized footer in the Parquet file layout with a few
// bytes of filler standing in for column data.
func BuildFile(footer []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("PAR1")
	buf.Write([]byte{0xde, 0xad, 0xbe, 0xef})
	buf.Write(footer)
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(footer)))
	buf.Write(n[:])
	buf.WriteString("PAR1")
	return buf.Bytes()
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// LE32 encodes v as 4 little-endian bytes
func LE32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// LE64 encodes v as 8 little-endian bytes
func LE64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// SampleMetaData returns a file with three leaf columns (id INT64 required,
// name STRING optional, score DOUBLE optional) spread over numRowGroups row
// groups of 100 rows each. Row groups after the first omit null counts on
// the name column.
func SampleMetaData(numRowGroups int) *parquetfmt.FileMetaData {
	i64 := parquetfmt.TypeInt64
	ba := parquetfmt.TypeByteArray
	dbl := parquetfmt.TypeDouble
	req := parquetfmt.Required
	opt := parquetfmt.Optional

	m := &parquetfmt.FileMetaData{
		Version: 1,
		Schema: []parquetfmt.SchemaElement{
			{Name: "schema", NumChildren: Ptr[int32](3)},
			{Name: "id", Type: &i64, RepetitionType: &req},
			{
				Name: "name", Type: &ba, RepetitionType: &opt,
				ConvertedType: Ptr(parquetfmt.ConvertedUTF8),
				LogicalType:   &parquetfmt.LogicalType{Kind: parquetfmt.LogicalString},
			},
			{Name: "score", Type: &dbl, RepetitionType: &opt},
		},
		NumRows:   int64(100 * numRowGroups),
		CreatedBy: Ptr("pqmeta fixtures"),
		KeyValueMetadata: []parquetfmt.KeyValue{
			{Key: "origin", Value: Ptr("unit-test")},
		},
	}

	offset := int64(4)
	for rg := 0; rg < numRowGroups; rg++ {
		base := int64(rg * 100)
		nameStats := &parquetfmt.Statistics{
			MinValue: []byte("alice"),
			MaxValue: []byte("zoe"),
		}
		if rg == 0 {
			nameStats.NullCount = Ptr[int64](5)
		}
		cols := []parquetfmt.ColumnChunk{
			chunk(parquetfmt.TypeInt64, "id", offset, 100, &parquetfmt.Statistics{
				MinValue:      LE64(uint64(base + 1)),
				MaxValue:      LE64(uint64(base + 100)),
				NullCount:     Ptr[int64](0),
				DistinctCount: Ptr[int64](100),
			}),
			chunk(parquetfmt.TypeByteArray, "name", offset+1000, 100, nameStats),
			chunk(parquetfmt.TypeDouble, "score", offset+2000, 100, &parquetfmt.Statistics{
				MinValue:  LE64(0x3ff0000000000000), // 1.0
				MaxValue:  LE64(0x4059000000000000), // 100.0
				NullCount: Ptr[int64](0),
			}),
		}
		m.RowGroups = append(m.RowGroups, parquetfmt.RowGroup{
			Columns:       cols,
			TotalByteSize: 3000,
			NumRows:       100,
			Ordinal:       Ptr(int16(rg)),
		})
		offset += 3000
	}
	return m
}

func chunk(t parquetfmt.Type, name string, offset, values int64, stats *parquetfmt.Statistics) parquetfmt.ColumnChunk {
	return parquetfmt.ColumnChunk{
		FileOffset: offset,
		MetaData: &parquetfmt.ColumnMetaData{
			Type:                  t,
			Encodings:             []parquetfmt.Encoding{0, 3},
			PathInSchema:          []string{name},
			Codec:                 1,
			NumValues:             values,
			TotalUncompressedSize: 1000,
			TotalCompressedSize:   600,
			DataPageOffset:        offset,
			Statistics:            stats,
		},
	}
}

// SampleFile returns the bytes of a complete file built from SampleMetaData
func SampleFile(numRowGroups int) []byte {
	return BuildFile(EncodeFileMetaData(SampleMetaData(numRowGroups)))
}

// FixtureRow is the row type written by WriteParquet
type FixtureRow struct {
	ID    int64   `parquet:"id"`
	Name  string  `parquet:"name"`
	Score float64 `parquet:"score"`
	Note  *string `parquet:"note,optional"`
}

// WriteParquet produces a real Parquet file with parquet-go
func WriteParquet(t testing.TB, rows []FixtureRow) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[FixtureRow](&buf)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write parquet rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close parquet writer: %v", err)
	}
	return buf.Bytes()
}

// FixtureRows returns n deterministic rows, every third one with a nil note
func FixtureRows(n int) []FixtureRow {
	rows := make([]FixtureRow, n)
	for i := range rows {
		rows[i] = FixtureRow{
			ID:    int64(i + 1),
			Name:  string(rune('a'+i%26)) + "-row",
			Score: float64(i) * 1.5,
		}
		if i%3 != 0 {
			note := "note"
			rows[i].Note = &note
		}
	}
	return rows
}
