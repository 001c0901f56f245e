package parquetfmt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Thrift compact protocol wire types
const (
	ctStop   byte = 0
	ctTrue   byte = 1
	ctFalse  byte = 2
	ctByte   byte = 3
	ctI16    byte = 4
	ctI32    byte = 5
	ctI64    byte = 6
	ctDouble byte = 7
	ctBinary byte = 8
	ctList   byte = 9
	ctSet    byte = 10
	ctMap    byte = 11
	ctStruct byte = 12
	ctUUID   byte = 13
)

// MaxNestingDepth bounds struct and container nesting while decoding
const MaxNestingDepth = 64

func wireTypeName(t byte) string {
	switch t {
	case ctStop:
		return "stop"
	case ctTrue, ctFalse:
		return "bool"
	case ctByte:
		return "i8"
	case ctI16:
		return "i16"
	case ctI32:
		return "i32"
	case ctI64:
		return "i64"
	case ctDouble:
		return "double"
	case ctBinary:
		return "binary"
	case ctList:
		return "list"
	case ctSet:
		return "set"
	case ctMap:
		return "map"
	case ctStruct:
		return "struct"
	case ctUUID:
		return "uuid"
	default:
		return fmt.Sprintf("type(%d)", t)
	}
}

// structSpec names a struct's fields for error messages and lists the
// fields that must be present.
type structSpec struct {
	name     string
	fields   map[int16]string
	required []int16
}

func (s *structSpec) fieldName(id int16) string {
	if name, ok := s.fields[id]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", id)
}

// compactReader decodes Thrift compact protocol values from an in-memory
// footer. It never reads past buf and never allocates more than the
// remaining input can describe.
type compactReader struct {
	buf   []byte
	pos   int
	depth int
}

func newCompactReader(buf []byte) *compactReader {
	return &compactReader{buf: buf}
}

func (r *compactReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *compactReader) corrupt(format string, args ...interface{}) error {
	return newFormatError(KindCorruptFooter, int64(r.pos), format, args...)
}

func (r *compactReader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, r.corrupt("unexpected end of footer")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *compactReader) readUvarint() (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < binary.MaxVarintLen64; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, r.corrupt("truncated varint")
		}
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				return 0, r.corrupt("varint overflows 64 bits")
			}
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, r.corrupt("varint too long")
}

func (r *compactReader) readVarint64() (int64, error) {
	u, err := r.readUvarint()
	if err != nil {
		return 0, err
	}
	return int64(u>>1) ^ -int64(u&1), nil
}

func (r *compactReader) readVarint32() (int32, error) {
	v, err := r.readVarint64()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, r.corrupt("i32 out of range: %d", v)
	}
	return int32(v), nil
}

func (r *compactReader) readI16() (int16, error) {
	v, err := r.readVarint64()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, r.corrupt("i16 out of range: %d", v)
	}
	return int16(v), nil
}

func (r *compactReader) readI8() (int8, error) {
	b, err := r.readByte()
	return int8(b), err
}

func (r *compactReader) readDouble() (float64, error) {
	if r.remaining() < 8 {
		return 0, r.corrupt("truncated double")
	}
	bits := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

// readBinary returns a copy of the next length-prefixed byte string. An
// empty value yields a non-nil empty slice.
func (r *compactReader) readBinary() ([]byte, error) {
	n, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, r.corrupt("binary length %d exceeds remaining %d bytes", n, r.remaining())
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *compactReader) readString() (string, error) {
	b, err := r.readBinary()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readListHeader returns the element type and the element count
func (r *compactReader) readListHeader() (byte, int, error) {
	h, err := r.readByte()
	if err != nil {
		return 0, 0, err
	}
	elem := h & 0x0f
	size := uint64(h >> 4)
	if size == 15 {
		size, err = r.readUvarint()
		if err != nil {
			return 0, 0, err
		}
	}
	// every element occupies at least one byte
	if size > uint64(r.remaining()) {
		return 0, 0, r.corrupt("list size %d exceeds remaining %d bytes", size, r.remaining())
	}
	return elem, int(size), nil
}

func (r *compactReader) readMapHeader() (byte, byte, int, error) {
	n, err := r.readUvarint()
	if err != nil {
		return 0, 0, 0, err
	}
	if n == 0 {
		return 0, 0, 0, nil
	}
	if n > uint64(r.remaining()/2) {
		return 0, 0, 0, r.corrupt("map size %d exceeds remaining %d bytes", n, r.remaining())
	}
	kv, err := r.readByte()
	if err != nil {
		return 0, 0, 0, err
	}
	return kv >> 4, kv & 0x0f, int(n), nil
}

// boolField returns the value of a bool field, which compact encodes in the
// field header's type nibble.
func boolField(typ byte) (bool, bool) {
	switch typ {
	case ctTrue:
		return true, true
	case ctFalse:
		return false, true
	default:
		return false, false
	}
}

func (r *compactReader) readBoolElem() (bool, error) {
	b, err := r.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case ctTrue:
		return true, nil
	case 0, ctFalse:
		return false, nil
	default:
		return false, r.corrupt("invalid bool element 0x%02x", b)
	}
}

func (r *compactReader) enter() error {
	r.depth++
	if r.depth > MaxNestingDepth {
		return r.corrupt("nesting deeper than %d", MaxNestingDepth)
	}
	return nil
}

func (r *compactReader) leave() {
	r.depth--
}

// readStruct iterates the fields of a struct, calling fn for each one.
// fn must consume the field value; unknown ids should be passed to skip.
// Required fields that never appeared are reported after the stop byte.
func (r *compactReader) readStruct(spec *structSpec, fn func(id int16, typ byte) error) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()

	var seen uint64
	var last int16
	for {
		h, err := r.readByte()
		if err != nil {
			return r.wrap(spec, "", err)
		}
		if h == ctStop {
			break
		}
		typ := h & 0x0f
		id := last
		if delta := int16(h >> 4); delta != 0 {
			id += delta
		} else {
			id, err = r.readI16()
			if err != nil {
				return r.wrap(spec, "", err)
			}
		}
		last = id

		if err := fn(id, typ); err != nil {
			return r.wrap(spec, spec.fieldName(id), err)
		}
		if id >= 0 && id < 64 {
			seen |= 1 << uint(id)
		}
	}

	for _, id := range spec.required {
		if seen&(1<<uint(id)) == 0 {
			return r.corrupt("%s: missing required field %s", spec.name, spec.fieldName(id))
		}
	}
	return nil
}

// wrap prefixes err with the struct and field being decoded
func (r *compactReader) wrap(spec *structSpec, field string, err error) error {
	fe, ok := err.(*FormatError)
	if !ok {
		return err
	}
	prefix := spec.name
	if field != "" {
		prefix += "." + field
	}
	return &FormatError{
		Kind:   fe.Kind,
		Detail: prefix + ": " + fe.Detail,
		Offset: fe.Offset,
		Err:    fe.Err,
	}
}

// expect checks that a known field arrived with the wire type its schema
// declares.
func (r *compactReader) expect(got, want byte) error {
	if got == want {
		return nil
	}
	if want == ctTrue && (got == ctTrue || got == ctFalse) {
		return nil
	}
	return r.corrupt("unexpected wire type %s, want %s", wireTypeName(got), wireTypeName(want))
}

// skip consumes a field value of the given wire type
func (r *compactReader) skip(typ byte) error {
	switch typ {
	case ctTrue, ctFalse:
		return nil
	case ctByte:
		_, err := r.readByte()
		return err
	case ctI16, ctI32, ctI64:
		_, err := r.readUvarint()
		return err
	case ctDouble:
		if r.remaining() < 8 {
			return r.corrupt("truncated double")
		}
		r.pos += 8
		return nil
	case ctBinary:
		n, err := r.readUvarint()
		if err != nil {
			return err
		}
		if n > uint64(r.remaining()) {
			return r.corrupt("binary length %d exceeds remaining %d bytes", n, r.remaining())
		}
		r.pos += int(n)
		return nil
	case ctUUID:
		if r.remaining() < 16 {
			return r.corrupt("truncated uuid")
		}
		r.pos += 16
		return nil
	case ctList, ctSet:
		elem, n, err := r.readListHeader()
		if err != nil {
			return err
		}
		if err := r.enter(); err != nil {
			return err
		}
		defer r.leave()
		for i := 0; i < n; i++ {
			if err := r.skipElem(elem); err != nil {
				return err
			}
		}
		return nil
	case ctMap:
		kt, vt, n, err := r.readMapHeader()
		if err != nil {
			return err
		}
		if err := r.enter(); err != nil {
			return err
		}
		defer r.leave()
		for i := 0; i < n; i++ {
			if err := r.skipElem(kt); err != nil {
				return err
			}
			if err := r.skipElem(vt); err != nil {
				return err
			}
		}
		return nil
	case ctStruct:
		if err := r.enter(); err != nil {
			return err
		}
		defer r.leave()
		var last int16
		for {
			h, err := r.readByte()
			if err != nil {
				return err
			}
			if h == ctStop {
				return nil
			}
			ft := h & 0x0f
			if delta := int16(h >> 4); delta != 0 {
				last += delta
			} else if last, err = r.readI16(); err != nil {
				return err
			}
			if err := r.skip(ft); err != nil {
				return err
			}
		}
	default:
		return r.corrupt("unknown wire type %d", typ)
	}
}

// skipElem consumes a container element. Bools inside containers take a
// full byte.
func (r *compactReader) skipElem(typ byte) error {
	if typ == ctTrue || typ == ctFalse {
		_, err := r.readBoolElem()
		return err
	}
	return r.skip(typ)
}

func (r *compactReader) readI32Field(typ byte) (int32, error) {
	if err := r.expect(typ, ctI32); err != nil {
		return 0, err
	}
	return r.readVarint32()
}

func (r *compactReader) readI64Field(typ byte) (int64, error) {
	if err := r.expect(typ, ctI64); err != nil {
		return 0, err
	}
	return r.readVarint64()
}

func (r *compactReader) readBinaryField(typ byte) ([]byte, error) {
	if err := r.expect(typ, ctBinary); err != nil {
		return nil, err
	}
	return r.readBinary()
}

func (r *compactReader) readStringField(typ byte) (string, error) {
	if err := r.expect(typ, ctBinary); err != nil {
		return "", err
	}
	return r.readString()
}

func (r *compactReader) readBoolField(typ byte) (bool, error) {
	v, ok := boolField(typ)
	if !ok {
		return false, r.corrupt("unexpected wire type %s, want bool", wireTypeName(typ))
	}
	return v, nil
}

// readList reads a list field whose elements must have the given wire type
func (r *compactReader) readList(typ, elem byte, fn func(i int) error) error {
	if err := r.expect(typ, ctList); err != nil {
		return err
	}
	got, n, err := r.readListHeader()
	if err != nil {
		return err
	}
	if n > 0 && got != elem && !(elem == ctTrue && got == ctFalse) {
		return r.corrupt("unexpected list element type %s, want %s", wireTypeName(got), wireTypeName(elem))
	}
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return r.corrupt("element %d: %s", i, detailOf(err))
		}
	}
	return nil
}

func detailOf(err error) string {
	if fe, ok := err.(*FormatError); ok {
		return fe.Detail
	}
	return err.Error()
}
