package domain

import "fmt"

// PhysicalType is the low-level storage type of a leaf column
type PhysicalType string

const (
	PhysicalBoolean           PhysicalType = "BOOLEAN"
	PhysicalInt32             PhysicalType = "INT32"
	PhysicalInt64             PhysicalType = "INT64"
	PhysicalInt96             PhysicalType = "INT96"
	PhysicalFloat             PhysicalType = "FLOAT"
	PhysicalDouble            PhysicalType = "DOUBLE"
	PhysicalByteArray         PhysicalType = "BYTE_ARRAY"
	PhysicalFixedLenByteArray PhysicalType = "FIXED_LEN_BYTE_ARRAY"
)

// Value is a statistics value decoded according to its column's physical
// type. The set of implementations is closed.
type Value interface {
	Physical() PhysicalType
	isValue()
}

// BoolValue is a BOOLEAN statistic
type BoolValue bool

// Int32Value is an INT32 statistic
type Int32Value int32

// Int64Value is an INT64 statistic
type Int64Value int64

// Int96Value is a raw INT96 statistic (nanoseconds of day followed by the
// Julian day number, little endian)
type Int96Value [12]byte

// FloatValue is a FLOAT statistic
type FloatValue float32

// DoubleValue is a DOUBLE statistic
type DoubleValue float64

// ByteArrayValue is a BYTE_ARRAY statistic
type ByteArrayValue []byte

// FixedLenByteArrayValue is a FIXED_LEN_BYTE_ARRAY statistic
type FixedLenByteArrayValue []byte

// RawValue keeps statistic bytes that could not be decoded under the
// column's declared types.
type RawValue struct {
	Type PhysicalType
	Data []byte
}

func (BoolValue) Physical() PhysicalType              { return PhysicalBoolean }
func (Int32Value) Physical() PhysicalType             { return PhysicalInt32 }
func (Int64Value) Physical() PhysicalType             { return PhysicalInt64 }
func (Int96Value) Physical() PhysicalType             { return PhysicalInt96 }
func (FloatValue) Physical() PhysicalType             { return PhysicalFloat }
func (DoubleValue) Physical() PhysicalType            { return PhysicalDouble }
func (ByteArrayValue) Physical() PhysicalType         { return PhysicalByteArray }
func (FixedLenByteArrayValue) Physical() PhysicalType { return PhysicalFixedLenByteArray }
func (v RawValue) Physical() PhysicalType             { return v.Type }

func (BoolValue) isValue()              {}
func (Int32Value) isValue()             {}
func (Int64Value) isValue()             {}
func (Int96Value) isValue()             {}
func (FloatValue) isValue()             {}
func (DoubleValue) isValue()            {}
func (ByteArrayValue) isValue()         {}
func (FixedLenByteArrayValue) isValue() {}
func (RawValue) isValue()               {}

// IsRaw reports whether v holds undecoded bytes
func IsRaw(v Value) bool {
	_, ok := v.(RawValue)
	return ok
}

// String renders the raw bytes in hex so reports can still show them
func (v RawValue) String() string {
	return fmt.Sprintf("0x%X", v.Data)
}
