package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Compact protocol wire types, for building hand-crafted footers
const (
	WireStop   byte = 0
	WireTrue   byte = 1
	WireFalse  byte = 2
	WireI8     byte = 3
	WireI16    byte = 4
	WireI32    byte = 5
	WireI64    byte = 6
	WireDouble byte = 7
	WireBinary byte = 8
	WireList   byte = 9
	WireSet    byte = 10
	WireMap    byte = 11
	WireStruct byte = 12
)

// CompactWriter emits Thrift compact protocol bytes. It is deliberately
// permissive so tests can produce malformed input.
type CompactWriter struct {
	buf  bytes.Buffer
	last []int16
}

// NewCompactWriter starts a writer positioned inside a root struct
func NewCompactWriter() *CompactWriter {
	return &CompactWriter{last: []int16{0}}
}

// Bytes returns everything written so far
func (w *CompactWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// Raw appends bytes as-is
func (w *CompactWriter) Raw(b ...byte) *CompactWriter {
	w.buf.Write(b)
	return w
}

func (w *CompactWriter) uvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

func (w *CompactWriter) zigzag(v int64) {
	w.uvarint(uint64((v << 1) ^ (v >> 63)))
}

// Field writes a field header using the short delta form when possible
func (w *CompactWriter) Field(id int16, typ byte) *CompactWriter {
	top := len(w.last) - 1
	delta := id - w.last[top]
	if delta > 0 && delta <= 15 {
		w.buf.WriteByte(byte(delta)<<4 | typ)
	} else {
		w.buf.WriteByte(typ)
		w.zigzag(int64(id))
	}
	w.last[top] = id
	return w
}

// Stop ends the current struct
func (w *CompactWriter) Stop() *CompactWriter {
	w.buf.WriteByte(WireStop)
	if len(w.last) > 1 {
		w.last = w.last[:len(w.last)-1]
	}
	return w
}

// BeginStruct writes a struct field header and enters the struct
func (w *CompactWriter) BeginStruct(id int16) *CompactWriter {
	w.Field(id, WireStruct)
	w.last = append(w.last, 0)
	return w
}

// BeginElem enters a struct that is a list element
func (w *CompactWriter) BeginElem() *CompactWriter {
	w.last = append(w.last, 0)
	return w
}

// I8 writes an i8 field
func (w *CompactWriter) I8(id int16, v int8) *CompactWriter {
	w.Field(id, WireI8)
	w.buf.WriteByte(byte(v))
	return w
}

// I16 writes an i16 field
func (w *CompactWriter) I16(id int16, v int16) *CompactWriter {
	w.Field(id, WireI16)
	w.zigzag(int64(v))
	return w
}

// I32 writes an i32 field
func (w *CompactWriter) I32(id int16, v int32) *CompactWriter {
	w.Field(id, WireI32)
	w.zigzag(int64(v))
	return w
}

// I64 writes an i64 field
func (w *CompactWriter) I64(id int16, v int64) *CompactWriter {
	w.Field(id, WireI64)
	w.zigzag(v)
	return w
}

// Double writes a double field
func (w *CompactWriter) Double(id int16, v float64) *CompactWriter {
	w.Field(id, WireDouble)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	w.buf.Write(tmp[:])
	return w
}

// Bool writes a bool field
func (w *CompactWriter) Bool(id int16, v bool) *CompactWriter {
	if v {
		return w.Field(id, WireTrue)
	}
	return w.Field(id, WireFalse)
}

// Binary writes a binary field
func (w *CompactWriter) Binary(id int16, b []byte) *CompactWriter {
	w.Field(id, WireBinary)
	w.BinaryElem(b)
	return w
}

// String writes a string field
func (w *CompactWriter) String(id int16, s string) *CompactWriter {
	return w.Binary(id, []byte(s))
}

// List writes a list field header
func (w *CompactWriter) List(id int16, elem byte, n int) *CompactWriter {
	w.Field(id, WireList)
	w.ListHeader(elem, n)
	return w
}

// ListHeader writes a bare list header
func (w *CompactWriter) ListHeader(elem byte, n int) *CompactWriter {
	if n < 15 {
		w.buf.WriteByte(byte(n)<<4 | elem)
	} else {
		w.buf.WriteByte(0xf0 | elem)
		w.uvarint(uint64(n))
	}
	return w
}

// I32Elem writes a list element of type i32
func (w *CompactWriter) I32Elem(v int32) *CompactWriter {
	w.zigzag(int64(v))
	return w
}

// BinaryElem writes a length-prefixed byte string
func (w *CompactWriter) BinaryElem(b []byte) *CompactWriter {
	w.uvarint(uint64(len(b)))
	w.buf.Write(b)
	return w
}

// Map writes a map field header
func (w *CompactWriter) Map(id int16, key, value byte, n int) *CompactWriter {
	w.Field(id, WireMap)
	w.uvarint(uint64(n))
	if n > 0 {
		w.buf.WriteByte(key<<4 | value)
	}
	return w
}
