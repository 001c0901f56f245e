package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pqmeta/internal/parquetfmt"
	"pqmeta/pkg/contracts/domain"
)

func TestFormatValue(t *testing.T) {
	decimal := &domain.LogicalType{Name: domain.LogicalDecimal, Precision: 5, Scale: 2}
	tsMicrosUTC := &domain.LogicalType{Name: domain.LogicalTimestamp, Unit: "MICROS", IsAdjustedToUTC: true}
	tsMillisLocal := &domain.LogicalType{Name: domain.LogicalTimestamp, Unit: "MILLIS"}
	uint8Type := &domain.LogicalType{Name: domain.LogicalInteger, BitWidth: 8}
	int8Type := &domain.LogicalType{Name: domain.LogicalInteger, BitWidth: 8, IsSigned: true}

	tests := []struct {
		name    string
		value   domain.Value
		logical *domain.LogicalType
		want    string
		wantErr bool
	}{
		{name: "nil value", value: nil, want: ""},
		{name: "plain int64", value: domain.Int64Value(-7), want: "-7"},
		{name: "plain double", value: domain.DoubleValue(2.5), want: "2.5"},
		{name: "plain bool", value: domain.BoolValue(true), want: "true"},
		{name: "plain binary utf8", value: domain.ByteArrayValue("hello"), want: "hello"},
		{name: "plain binary not utf8", value: domain.ByteArrayValue{0xff, 0x00}, want: "0xFF00"},
		{name: "string", value: domain.ByteArrayValue("olá"), logical: &domain.LogicalType{Name: domain.LogicalString}, want: "olá"},
		{name: "string invalid utf8", value: domain.ByteArrayValue{0xc3, 0x28}, logical: &domain.LogicalType{Name: domain.LogicalString}, wantErr: true},
		{name: "string on int", value: domain.Int32Value(1), logical: &domain.LogicalType{Name: domain.LogicalString}, wantErr: true},
		{name: "decimal int32", value: domain.Int32Value(12345), logical: decimal, want: "123.45"},
		{name: "decimal small", value: domain.Int32Value(-5), logical: decimal, want: "-0.05"},
		{name: "decimal bytes negative", value: domain.FixedLenByteArrayValue{0xff, 0x85}, logical: decimal, want: "-1.23"},
		{name: "decimal precision overflow", value: domain.Int64Value(1234567), logical: decimal, wantErr: true},
		{name: "date", value: domain.Int32Value(19000), logical: &domain.LogicalType{Name: domain.LogicalDate}, want: "2022-01-08"},
		{name: "date on int64", value: domain.Int64Value(1), logical: &domain.LogicalType{Name: domain.LogicalDate}, wantErr: true},
		{name: "time millis", value: domain.Int32Value(3723004), logical: &domain.LogicalType{Name: domain.LogicalTime, Unit: "MILLIS"}, want: "01:02:03.004"},
		{name: "time out of range", value: domain.Int32Value(86400000), logical: &domain.LogicalType{Name: domain.LogicalTime, Unit: "MILLIS"}, wantErr: true},
		{name: "timestamp micros utc", value: domain.Int64Value(1_600_000_000_123_456), logical: tsMicrosUTC, want: "2020-09-13T12:26:40.123456Z"},
		{name: "timestamp millis local", value: domain.Int64Value(0), logical: tsMillisLocal, want: "1970-01-01T00:00:00"},
		{name: "unsigned int8", value: domain.Int32Value(200), logical: uint8Type, want: "200"},
		{name: "unsigned int8 overflow", value: domain.Int32Value(300), logical: uint8Type, wantErr: true},
		{name: "unsigned int32 from negative bits", value: domain.Int32Value(-1), logical: &domain.LogicalType{Name: domain.LogicalInteger, BitWidth: 32}, want: "4294967295"},
		{name: "signed int8 overflow", value: domain.Int32Value(-129), logical: int8Type, wantErr: true},
		{
			name:    "uuid",
			value:   domain.FixedLenByteArrayValue{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00},
			logical: &domain.LogicalType{Name: domain.LogicalUUID},
			want:    "123e4567-e89b-12d3-a456-426614174000",
		},
		{name: "uuid wrong length", value: domain.FixedLenByteArrayValue{1, 2, 3}, logical: &domain.LogicalType{Name: domain.LogicalUUID}, wantErr: true},
		{name: "float16 one", value: domain.FixedLenByteArrayValue{0x00, 0x3c}, logical: &domain.LogicalType{Name: domain.LogicalFloat16}, want: "1"},
		{name: "float16 negative two", value: domain.FixedLenByteArrayValue{0x00, 0xc0}, logical: &domain.LogicalType{Name: domain.LogicalFloat16}, want: "-2"},
		{name: "interval", value: domain.FixedLenByteArrayValue{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}, logical: &domain.LogicalType{Name: domain.LogicalInterval}, want: "1 months 2 days 3 ms"},
		{name: "raw passes through", value: domain.RawValue{Type: domain.PhysicalInt32, Data: []byte{0xab}}, logical: decimal, want: "0xAB"},
		{
			name:  "int96 epoch",
			value: domain.Int96Value{0, 0, 0, 0, 0, 0, 0, 0, 0x8c, 0x3d, 0x25, 0x00},
			want:  "1970-01-01T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatValue(tt.value, tt.logical)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnnotate(t *testing.T) {
	ct := func(c parquetfmt.ConvertedType) *parquetfmt.ConvertedType { return &c }
	i32 := func(v int32) *int32 { return &v }

	tests := []struct {
		name string
		el   parquetfmt.SchemaElement
		want string
	}{
		{name: "none", el: parquetfmt.SchemaElement{}, want: ""},
		{name: "legacy utf8", el: parquetfmt.SchemaElement{ConvertedType: ct(parquetfmt.ConvertedUTF8)}, want: "STRING"},
		{name: "legacy decimal", el: parquetfmt.SchemaElement{ConvertedType: ct(parquetfmt.ConvertedDecimal), Scale: i32(2), Precision: i32(9)}, want: "DECIMAL(9,2)"},
		{name: "legacy uint16", el: parquetfmt.SchemaElement{ConvertedType: ct(parquetfmt.ConvertedUint16)}, want: "INTEGER(16,unsigned)"},
		{name: "legacy int64", el: parquetfmt.SchemaElement{ConvertedType: ct(parquetfmt.ConvertedInt64)}, want: "INTEGER(64,signed)"},
		{name: "legacy timestamp micros", el: parquetfmt.SchemaElement{ConvertedType: ct(parquetfmt.ConvertedTimestampMicros)}, want: "TIMESTAMP(MICROS,UTC)"},
		{
			name: "logical type wins",
			el: parquetfmt.SchemaElement{
				ConvertedType: ct(parquetfmt.ConvertedUTF8),
				LogicalType:   &parquetfmt.LogicalType{Kind: parquetfmt.LogicalJSON},
			},
			want: "JSON",
		},
		{
			name: "time nanos local",
			el: parquetfmt.SchemaElement{LogicalType: &parquetfmt.LogicalType{
				Kind: parquetfmt.LogicalTime, Time: &parquetfmt.TimeType{Unit: parquetfmt.UnitNanos},
			}},
			want: "TIME(NANOS,local)",
		},
		{name: "unknown member", el: parquetfmt.SchemaElement{LogicalType: &parquetfmt.LogicalType{Kind: parquetfmt.LogicalUnrecognized}}, want: "UNRECOGNIZED"},
		{name: "null", el: parquetfmt.SchemaElement{LogicalType: &parquetfmt.LogicalType{Kind: parquetfmt.LogicalNull}}, want: "NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, annotate(&tt.el).String())
		})
	}
}

func TestSignedSortOrder(t *testing.T) {
	assert.True(t, signedSortOrder(domain.PhysicalInt64, nil))
	assert.True(t, signedSortOrder(domain.PhysicalDouble, nil))
	assert.False(t, signedSortOrder(domain.PhysicalByteArray, nil))
	assert.False(t, signedSortOrder(domain.PhysicalInt96, nil))
	assert.False(t, signedSortOrder(domain.PhysicalInt32, &domain.LogicalType{Name: domain.LogicalInteger, BitWidth: 8}))
	assert.True(t, signedSortOrder(domain.PhysicalInt32, &domain.LogicalType{Name: domain.LogicalInteger, BitWidth: 8, IsSigned: true}))
	assert.False(t, signedSortOrder(domain.PhysicalInt64, &domain.LogicalType{Name: domain.LogicalDecimal}))
}

func TestHalfToFloat32(t *testing.T) {
	assert.Equal(t, float32(0), halfToFloat32(0x0000))
	assert.Equal(t, float32(65504), halfToFloat32(0x7bff))
	assert.Equal(t, float32(5.9604645e-08), halfToFloat32(0x0001))
	assert.Equal(t, float32(0.5), halfToFloat32(0x3800))
}
