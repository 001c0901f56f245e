package dataprocessing

import (
	"encoding/binary"
	"fmt"
	"math"

	"pqmeta/pkg/contracts/domain"
)

// DecodeValue decodes a plain-encoded statistics value. typeLength is only
// checked for FIXED_LEN_BYTE_ARRAY and is ignored when not positive.
func DecodeValue(t domain.PhysicalType, typeLength int32, b []byte) (domain.Value, error) {
	want := fixedWidth(t)
	if want > 0 && len(b) != want {
		return nil, fmt.Errorf("%s statistic is %d bytes, want %d", t, len(b), want)
	}

	switch t {
	case domain.PhysicalBoolean:
		switch b[0] {
		case 0:
			return domain.BoolValue(false), nil
		case 1:
			return domain.BoolValue(true), nil
		default:
			return nil, fmt.Errorf("BOOLEAN statistic has invalid byte 0x%02x", b[0])
		}
	case domain.PhysicalInt32:
		return domain.Int32Value(int32(binary.LittleEndian.Uint32(b))), nil
	case domain.PhysicalInt64:
		return domain.Int64Value(int64(binary.LittleEndian.Uint64(b))), nil
	case domain.PhysicalInt96:
		var v domain.Int96Value
		copy(v[:], b)
		return v, nil
	case domain.PhysicalFloat:
		return domain.FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case domain.PhysicalDouble:
		return domain.DoubleValue(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case domain.PhysicalByteArray:
		return domain.ByteArrayValue(clone(b)), nil
	case domain.PhysicalFixedLenByteArray:
		if typeLength > 0 && len(b) != int(typeLength) {
			return nil, fmt.Errorf("FIXED_LEN_BYTE_ARRAY statistic is %d bytes, want %d", len(b), typeLength)
		}
		return domain.FixedLenByteArrayValue(clone(b)), nil
	default:
		return nil, fmt.Errorf("unknown physical type %q", t)
	}
}

// EncodeValue is the inverse of DecodeValue
func EncodeValue(v domain.Value) []byte {
	switch val := v.(type) {
	case domain.BoolValue:
		if val {
			return []byte{1}
		}
		return []byte{0}
	case domain.Int32Value:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(val))
		return b
	case domain.Int64Value:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(val))
		return b
	case domain.Int96Value:
		return clone(val[:])
	case domain.FloatValue:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(val)))
		return b
	case domain.DoubleValue:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(val)))
		return b
	case domain.ByteArrayValue:
		return clone(val)
	case domain.FixedLenByteArrayValue:
		return clone(val)
	case domain.RawValue:
		return clone(val.Data)
	default:
		return nil
	}
}

func fixedWidth(t domain.PhysicalType) int {
	switch t {
	case domain.PhysicalBoolean:
		return 1
	case domain.PhysicalInt32, domain.PhysicalFloat:
		return 4
	case domain.PhysicalInt64, domain.PhysicalDouble:
		return 8
	case domain.PhysicalInt96:
		return 12
	default:
		return 0
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
