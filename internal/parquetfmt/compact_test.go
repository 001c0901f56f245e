package parquetfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactReader_Varints(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    int64
		wantErr bool
	}{
		{name: "zero", input: []byte{0x00}, want: 0},
		{name: "minus one", input: []byte{0x01}, want: -1},
		{name: "one", input: []byte{0x02}, want: 1},
		{name: "150", input: []byte{0xac, 0x02}, want: 150},
		{name: "truncated", input: []byte{0x80}, wantErr: true},
		{name: "too long", input: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, wantErr: true},
		{name: "overflow in last byte", input: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newCompactReader(tt.input)
			got, err := r.readVarint64()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindCorruptFooter, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompactReader_I32Range(t *testing.T) {
	// zigzag(1<<40)
	r := newCompactReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x40})
	_, err := r.readVarint32()
	assert.ErrorIs(t, err, ErrCorruptFooter)
}

func TestCompactReader_BinaryBounds(t *testing.T) {
	r := newCompactReader([]byte{0x05, 'a', 'b'})
	_, err := r.readBinary()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds remaining")

	r = newCompactReader([]byte{0x00})
	b, err := r.readBinary()
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Len(t, b, 0)
}

func TestCompactReader_ListSizeBound(t *testing.T) {
	// list header claiming 1000 i32 elements followed by two bytes
	r := newCompactReader([]byte{0xf5, 0xe8, 0x07, 0x02, 0x04})
	_, _, err := r.readListHeader()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list size 1000")
}

func TestCompactReader_SkipAllWireTypes(t *testing.T) {
	// struct with one field of every skippable type, then a marker i32 field
	input := []byte{
		0x11,             // field 1 bool true
		0x13, 0x7f,       // field 2 i8
		0x14, 0x04,       // field 3 i16
		0x15, 0x08,       // field 4 i32
		0x16, 0x10,       // field 5 i64
		0x17, 0, 0, 0, 0, 0, 0, 0xf0, 0x3f, // field 6 double
		0x18, 0x02, 'h', 'i', // field 7 binary
		0x19, 0x21, 0x01, // field 8 list<bool> of 2
		0x02,
		0x1a, 0x15, 0x02, // field 9 set<i32> of 1
		0x1b, 0x01, 0x85, 0x01, 'k', 0x04, // field 10 map<binary,i32> of 1
		0x1c, 0x15, 0x02, 0x00, // field 11 struct { 1: i32 }
		0x1d, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, // field 12 uuid
		0x15, 0x54, // field 13 i32 = 42
		0x00,
	}
	spec := &structSpec{name: "Probe", fields: map[int16]string{13: "marker"}, required: []int16{13}}

	var marker int32
	r := newCompactReader(input)
	err := r.readStruct(spec, func(id int16, typ byte) error {
		if id == 13 {
			v, err := r.readI32Field(typ)
			marker = v
			return err
		}
		return r.skip(typ)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(42), marker)
	assert.Equal(t, 0, r.remaining())
}

func TestCompactReader_MissingRequiredField(t *testing.T) {
	spec := &structSpec{name: "Probe", fields: map[int16]string{1: "must"}, required: []int16{1}}
	r := newCompactReader([]byte{0x00})
	err := r.readStruct(spec, func(_ int16, typ byte) error { return r.skip(typ) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field must")
}

func TestCompactReader_WrongWireType(t *testing.T) {
	spec := &structSpec{name: "Probe", fields: map[int16]string{1: "count"}}
	// field 1 as binary where i64 is expected
	r := newCompactReader([]byte{0x18, 0x01, 'x', 0x00})
	err := r.readStruct(spec, func(_ int16, typ byte) error {
		_, err := r.readI64Field(typ)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Probe.count")
	assert.Contains(t, err.Error(), "want i64")
}

func TestCompactReader_DepthLimit(t *testing.T) {
	// struct nested deeper than the limit via field 1 of type struct
	var input []byte
	for i := 0; i < MaxNestingDepth+2; i++ {
		input = append(input, 0x1c)
	}
	r := newCompactReader(input)
	err := r.skip(ctStruct)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting deeper")
}

func TestCompactReader_LongFieldHeader(t *testing.T) {
	// delta zero: type byte followed by zigzag i16 id 100
	input := []byte{0x05, 0xc8, 0x01, 0x02, 0x00}
	spec := &structSpec{name: "Probe"}
	var seen []int16
	r := newCompactReader(input)
	err := r.readStruct(spec, func(id int16, typ byte) error {
		seen = append(seen, id)
		return r.skip(typ)
	})
	require.NoError(t, err)
	assert.Equal(t, []int16{100}, seen)
}
