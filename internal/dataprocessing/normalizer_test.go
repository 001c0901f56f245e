package dataprocessing_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pqmeta/internal/dataprocessing"
	"pqmeta/internal/parquetfmt"
	"pqmeta/internal/shared/testutil"
	"pqmeta/pkg/contracts/domain"
)

func normalizeSample(t *testing.T, m *parquetfmt.FileMetaData) *domain.FileReport {
	t.Helper()
	block := parquetfmt.FooterBlock{Offset: 8, Length: 100, FileSize: 1000, Magic: "PAR1", FormatVersion: 1}
	report, err := dataprocessing.Normalize("sample.parquet", 1000, block, m)
	require.NoError(t, err)
	return report
}

func TestNormalize_Sample(t *testing.T) {
	report := normalizeSample(t, testutil.SampleMetaData(2))

	assert.Equal(t, "sample.parquet", report.FileName)
	assert.Equal(t, int64(200), report.RowCount)
	assert.Equal(t, int64(1000), report.TotalSize)
	assert.Equal(t, int64(100), report.FooterLength)
	assert.Equal(t, "pqmeta fixtures", report.CreatedBy)
	assert.Equal(t, 3, report.ColumnCount())
	assert.Len(t, report.RowGroups, 2)
	assert.Empty(t, report.Anomalies)
	require.Len(t, report.KeyValueMetadata, 1)
	assert.Equal(t, "origin", report.KeyValueMetadata[0].Key)

	// one entry per row group and column, never merged
	require.Len(t, report.Columns, 6)
	for i, cs := range report.Columns {
		assert.Equal(t, i/3, cs.RowGroup)
		assert.Equal(t, i%3, cs.ColumnIndex)
	}

	id := report.Columns[3]
	assert.Equal(t, "id", id.Path)
	assert.Equal(t, domain.Int64Value(101), id.Min)
	assert.Equal(t, domain.Int64Value(200), id.Max)
	assert.Equal(t, "101", id.MinText)
	assert.False(t, id.StatsUnreliable)
	assert.Equal(t, []string{"PLAIN", "RLE"}, id.Encodings)
	assert.Equal(t, "SNAPPY", id.Codec)

	name := report.Columns[1]
	assert.Equal(t, domain.ByteArrayValue("alice"), name.Min)
	assert.Equal(t, "zoe", name.MaxText)
	require.NotNil(t, name.LogicalType)
	assert.Equal(t, "STRING", name.LogicalType.Name)
	require.NotNil(t, name.NullCount)
	assert.Equal(t, int64(5), *name.NullCount)

	score := report.Columns[2]
	assert.Equal(t, domain.DoubleValue(1), score.Min)
	assert.Equal(t, "100", score.MaxText)
}

func TestNormalize_UnknownNullCountIsNotZero(t *testing.T) {
	report := normalizeSample(t, testutil.SampleMetaData(2))

	withCount := report.Columns[1]
	withoutCount := report.Columns[4]
	require.Equal(t, "name", withoutCount.Path)
	require.Equal(t, 1, withoutCount.RowGroup)

	assert.NotNil(t, withCount.NullCount)
	assert.Nil(t, withoutCount.NullCount)
	assert.Nil(t, withoutCount.DistinctCount)

	zero := report.Columns[0]
	require.NotNil(t, zero.NullCount)
	assert.Equal(t, int64(0), *zero.NullCount)
}

func TestNormalize_SchemaTree(t *testing.T) {
	i32 := parquetfmt.TypeInt32
	ba := parquetfmt.TypeByteArray
	rep := parquetfmt.Repeated
	opt := parquetfmt.Optional

	m := &parquetfmt.FileMetaData{
		Version: 1,
		Schema: []parquetfmt.SchemaElement{
			{Name: "root", NumChildren: testutil.Ptr[int32](2)},
			{Name: "tags", RepetitionType: &opt, NumChildren: testutil.Ptr[int32](1), ConvertedType: testutil.Ptr(parquetfmt.ConvertedList)},
			{Name: "list", RepetitionType: &rep, NumChildren: testutil.Ptr[int32](1)},
			{Name: "element", Type: &ba, RepetitionType: &opt},
			{Name: "count", Type: &i32, RepetitionType: &opt},
		},
	}
	report := normalizeSample(t, m)

	root := report.Schema
	require.Len(t, root.Children, 2)
	tags := root.Children[0]
	assert.Equal(t, "tags", tags.Path)
	assert.Equal(t, 1, tags.Depth)
	assert.Equal(t, -1, tags.ColumnIndex)
	assert.Equal(t, "LIST", tags.LogicalType.String())

	element := tags.Children[0].Children[0]
	assert.Equal(t, "tags.list.element", element.Path)
	assert.Equal(t, 3, element.Depth)
	assert.Equal(t, 0, element.ColumnIndex)
	assert.True(t, element.IsLeaf())

	count := root.Children[1]
	assert.Equal(t, 1, count.Ordinal)
	assert.Equal(t, 1, count.ColumnIndex)
	assert.Equal(t, domain.RepetitionOptional, count.Repetition)

	leaves := root.Leaves()
	require.Len(t, leaves, 2)
	assert.Equal(t, "tags.list.element", leaves[0].Path)
	assert.Equal(t, "count", leaves[1].Path)
}

func TestNormalize_SchemaErrors(t *testing.T) {
	i32 := parquetfmt.TypeInt32
	bad := parquetfmt.Type(12)

	tests := []struct {
		name   string
		schema []parquetfmt.SchemaElement
	}{
		{name: "empty schema"},
		{name: "root without children", schema: []parquetfmt.SchemaElement{{Name: "root"}}},
		{
			name: "children missing",
			schema: []parquetfmt.SchemaElement{
				{Name: "root", NumChildren: testutil.Ptr[int32](3)},
				{Name: "a", Type: &i32},
			},
		},
		{
			name: "leaf without type",
			schema: []parquetfmt.SchemaElement{
				{Name: "root", NumChildren: testutil.Ptr[int32](1)},
				{Name: "a"},
			},
		},
		{
			name: "trailing elements",
			schema: []parquetfmt.SchemaElement{
				{Name: "root", NumChildren: testutil.Ptr[int32](1)},
				{Name: "a", Type: &i32},
				{Name: "b", Type: &i32},
			},
		},
		{
			name: "unknown physical type",
			schema: []parquetfmt.SchemaElement{
				{Name: "root", NumChildren: testutil.Ptr[int32](1)},
				{Name: "a", Type: &bad},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dataprocessing.Normalize("x.parquet", 100, parquetfmt.FooterBlock{}, &parquetfmt.FileMetaData{Schema: tt.schema})
			require.Error(t, err)
			assert.True(t, dataprocessing.IsNormalizeError(err))
		})
	}
}

func TestNormalize_RowGroupColumnMismatch(t *testing.T) {
	m := testutil.SampleMetaData(1)
	m.RowGroups[0].Columns = m.RowGroups[0].Columns[:2]
	_, err := dataprocessing.Normalize("x.parquet", 100, parquetfmt.FooterBlock{}, m)
	require.Error(t, err)
	var ne *dataprocessing.NormalizeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, dataprocessing.ErrorTypeRowGroup, ne.Type)
}

func TestNormalize_Anomalies(t *testing.T) {
	m := testutil.SampleMetaData(1)
	id := m.RowGroups[0].Columns[0].MetaData
	id.TotalCompressedSize = 5000
	id.Statistics.NullCount = testutil.Ptr[int64](500)
	m.NumRows = 999

	report := normalizeSample(t, m)
	cs := report.Columns[0]
	assert.Len(t, cs.Anomalies, 2)
	assert.Contains(t, cs.Anomalies[0], "compressed size 5000 exceeds")
	assert.Contains(t, cs.Anomalies[1], "null count 500 exceeds")
	require.Len(t, report.Anomalies, 1)
	assert.Contains(t, report.Anomalies[0], "footer declares 999")
}

func TestNormalize_UndecodableStatsKeptRaw(t *testing.T) {
	m := testutil.SampleMetaData(1)
	// 3 bytes cannot be an INT64
	m.RowGroups[0].Columns[0].MetaData.Statistics.MinValue = []byte{1, 2, 3}
	// invalid UTF-8 under a STRING annotation
	m.RowGroups[0].Columns[1].MetaData.Statistics.MaxValue = []byte{0xff, 0xfe}

	report := normalizeSample(t, m)

	id := report.Columns[0]
	assert.True(t, id.StatsUnreliable)
	assert.Equal(t, domain.RawValue{Type: domain.PhysicalInt64, Data: []byte{1, 2, 3}}, id.Min)
	assert.Equal(t, "0x010203", id.MinText)
	assert.Equal(t, domain.Int64Value(100), id.Max, "the decodable bound is kept typed")

	name := report.Columns[1]
	assert.True(t, name.StatsUnreliable)
	assert.True(t, domain.IsRaw(name.Max))
	assert.Equal(t, "alice", name.MinText)
}

func TestNormalize_LegacyStatsOnByteArrayAreUnreliable(t *testing.T) {
	m := testutil.SampleMetaData(1)
	st := m.RowGroups[0].Columns[1].MetaData.Statistics
	st.Min, st.Max = st.MinValue, st.MaxValue
	st.MinValue, st.MaxValue = nil, nil

	idStats := m.RowGroups[0].Columns[0].MetaData.Statistics
	idStats.Min, idStats.Max = idStats.MinValue, idStats.MaxValue
	idStats.MinValue, idStats.MaxValue = nil, nil

	report := normalizeSample(t, m)
	assert.True(t, report.Columns[1].StatsUnreliable)
	assert.Equal(t, "alice", report.Columns[1].MinText)
	assert.False(t, report.Columns[0].StatsUnreliable, "signed INT64 legacy stats are trusted")
}

func TestNormalize_MissingColumnMetadata(t *testing.T) {
	m := testutil.SampleMetaData(1)
	m.RowGroups[0].Columns[2].MetaData = nil
	m.RowGroups[0].Columns[2].Encrypted = true

	report := normalizeSample(t, m)
	cs := report.Columns[2]
	assert.Equal(t, "score", cs.Path)
	assert.Equal(t, []string{"column metadata is encrypted"}, cs.Anomalies)
	assert.Nil(t, cs.NullCount)
}

func TestNormalize_PathMismatchFallsBackToPosition(t *testing.T) {
	m := testutil.SampleMetaData(1)
	m.RowGroups[0].Columns[2].MetaData.PathInSchema = []string{"renamed"}

	report := normalizeSample(t, m)
	cs := report.Columns[2]
	assert.Equal(t, "score", cs.Path)
	require.Len(t, cs.Anomalies, 1)
	assert.Contains(t, cs.Anomalies[0], "renamed")
}

func TestNormalize_DuplicatePathsMatchedByPosition(t *testing.T) {
	m := testutil.SampleMetaData(1)
	m.RowGroups[0].Columns[1].MetaData.PathInSchema = []string{"id"}

	report := normalizeSample(t, m)
	require.Len(t, report.Columns, 3)
	for i, want := range []string{"id", "name", "score"} {
		assert.Equal(t, want, report.Columns[i].Path)
		assert.Equal(t, i, report.Columns[i].ColumnIndex)
	}
	assert.Empty(t, report.Columns[0].Anomalies)
	require.Len(t, report.Columns[1].Anomalies, 1)
	assert.Contains(t, report.Columns[1].Anomalies[0], "shared with another chunk")

	fields := dataprocessing.SummarizeFields(report)
	require.Len(t, fields, 3)
	assert.Equal(t, int64(100), fields[0].ValueCount)
	assert.Equal(t, int64(100), fields[1].ValueCount)
}

func TestNormalize_ReorderedChunksMatchedByPath(t *testing.T) {
	m := testutil.SampleMetaData(1)
	cols := m.RowGroups[0].Columns
	cols[0], cols[2] = cols[2], cols[0]

	report := normalizeSample(t, m)
	require.Len(t, report.Columns, 3)
	assert.Equal(t, "score", report.Columns[0].Path)
	assert.Equal(t, 2, report.Columns[0].ColumnIndex)
	assert.Equal(t, "id", report.Columns[2].Path)
	assert.Equal(t, 0, report.Columns[2].ColumnIndex)
	for _, cs := range report.Columns {
		assert.Empty(t, cs.Anomalies, cs.Path)
	}
}

func TestNormalize_RealParquetFile(t *testing.T) {
	data := testutil.WriteParquet(t, testutil.FixtureRows(30))
	block, meta, err := parquetfmt.NewLocator(0).ReadMetaData(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	report, err := dataprocessing.Normalize("real.parquet", int64(len(data)), block, meta)
	require.NoError(t, err)
	assert.Equal(t, int64(30), report.RowCount)
	assert.Equal(t, 4, report.ColumnCount())

	for _, cs := range report.Columns {
		assert.Equal(t, int64(30), cs.ValueCount, cs.Path)
		assert.GreaterOrEqual(t, cs.ColumnIndex, 0, cs.Path)
	}
}
