package dataprocessing

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"pqmeta/internal/parquetfmt"
	"pqmeta/pkg/contracts/domain"
)

const (
	julianUnixEpoch = 2440588
	nanosPerDay     = int64(24 * time.Hour)
)

// annotate maps a schema element's logical or converted type to the report
// representation. The LogicalType union wins over the legacy converted type.
func annotate(se *parquetfmt.SchemaElement) *domain.LogicalType {
	if lt := se.LogicalType; lt != nil && lt.Kind != parquetfmt.LogicalNone {
		out := &domain.LogicalType{Name: logicalName(lt.Kind)}
		switch {
		case lt.Decimal != nil:
			out.Scale = lt.Decimal.Scale
			out.Precision = lt.Decimal.Precision
		case lt.Time != nil:
			out.Unit = lt.Time.Unit.String()
			out.IsAdjustedToUTC = lt.Time.IsAdjustedToUTC
		case lt.Timestamp != nil:
			out.Unit = lt.Timestamp.Unit.String()
			out.IsAdjustedToUTC = lt.Timestamp.IsAdjustedToUTC
		case lt.Integer != nil:
			out.BitWidth = int(lt.Integer.BitWidth)
			out.IsSigned = lt.Integer.IsSigned
		}
		return out
	}

	if se.ConvertedType == nil {
		return nil
	}
	out := &domain.LogicalType{Legacy: true}
	switch ct := *se.ConvertedType; ct {
	case parquetfmt.ConvertedUTF8:
		out.Name = domain.LogicalString
	case parquetfmt.ConvertedMap, parquetfmt.ConvertedMapKeyValue:
		out.Name = domain.LogicalMap
	case parquetfmt.ConvertedList:
		out.Name = domain.LogicalList
	case parquetfmt.ConvertedEnum:
		out.Name = domain.LogicalEnum
	case parquetfmt.ConvertedDecimal:
		out.Name = domain.LogicalDecimal
		if se.Scale != nil {
			out.Scale = *se.Scale
		}
		if se.Precision != nil {
			out.Precision = *se.Precision
		}
	case parquetfmt.ConvertedDate:
		out.Name = domain.LogicalDate
	case parquetfmt.ConvertedTimeMillis, parquetfmt.ConvertedTimeMicros:
		out.Name = domain.LogicalTime
		out.IsAdjustedToUTC = true
		out.Unit = parquetfmt.UnitMillis.String()
		if ct == parquetfmt.ConvertedTimeMicros {
			out.Unit = parquetfmt.UnitMicros.String()
		}
	case parquetfmt.ConvertedTimestampMillis, parquetfmt.ConvertedTimestampMicros:
		out.Name = domain.LogicalTimestamp
		out.IsAdjustedToUTC = true
		out.Unit = parquetfmt.UnitMillis.String()
		if ct == parquetfmt.ConvertedTimestampMicros {
			out.Unit = parquetfmt.UnitMicros.String()
		}
	case parquetfmt.ConvertedUint8, parquetfmt.ConvertedUint16, parquetfmt.ConvertedUint32, parquetfmt.ConvertedUint64:
		out.Name = domain.LogicalInteger
		out.BitWidth = 8 << (ct - parquetfmt.ConvertedUint8)
	case parquetfmt.ConvertedInt8, parquetfmt.ConvertedInt16, parquetfmt.ConvertedInt32, parquetfmt.ConvertedInt64:
		out.Name = domain.LogicalInteger
		out.BitWidth = 8 << (ct - parquetfmt.ConvertedInt8)
		out.IsSigned = true
	case parquetfmt.ConvertedJSON:
		out.Name = domain.LogicalJSON
	case parquetfmt.ConvertedBSON:
		out.Name = domain.LogicalBSON
	case parquetfmt.ConvertedInterval:
		out.Name = domain.LogicalInterval
	default:
		out.Name = ct.String()
	}
	return out
}

func logicalName(k parquetfmt.LogicalKind) string {
	switch k {
	case parquetfmt.LogicalNull:
		return domain.LogicalNull
	case parquetfmt.LogicalUnrecognized:
		return domain.LogicalUnknown
	default:
		return k.String()
	}
}

// signedSortOrder reports whether legacy min/max fields can be trusted for
// a column. Writers before format 2.x compared every type as signed bytes.
func signedSortOrder(physical domain.PhysicalType, lt *domain.LogicalType) bool {
	switch physical {
	case domain.PhysicalByteArray, domain.PhysicalFixedLenByteArray, domain.PhysicalInt96:
		return false
	}
	if lt == nil {
		return true
	}
	switch lt.Name {
	case domain.LogicalDecimal, domain.LogicalFloat16, domain.LogicalInterval:
		return false
	case domain.LogicalInteger:
		return lt.IsSigned
	}
	return true
}

// FormatValue renders a statistic for display under its logical type. An
// error means the bytes cannot be interpreted as declared.
func FormatValue(v domain.Value, lt *domain.LogicalType) (string, error) {
	if v == nil {
		return "", nil
	}
	if raw, ok := v.(domain.RawValue); ok {
		return raw.String(), nil
	}
	if lt == nil {
		return formatPhysical(v), nil
	}

	switch lt.Name {
	case domain.LogicalString, domain.LogicalEnum, domain.LogicalJSON:
		b, ok := bytesOf(v)
		if !ok {
			return "", mismatch(v, lt)
		}
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%s statistic is not valid UTF-8", lt.Name)
		}
		return string(b), nil
	case domain.LogicalDecimal:
		return formatDecimal(v, lt)
	case domain.LogicalDate:
		d, ok := v.(domain.Int32Value)
		if !ok {
			return "", mismatch(v, lt)
		}
		return time.Unix(int64(d)*86400, 0).UTC().Format("2006-01-02"), nil
	case domain.LogicalTime:
		return formatTime(v, lt)
	case domain.LogicalTimestamp:
		return formatTimestamp(v, lt)
	case domain.LogicalInteger:
		return formatInteger(v, lt)
	case domain.LogicalUUID:
		b, ok := v.(domain.FixedLenByteArrayValue)
		if !ok {
			return "", mismatch(v, lt)
		}
		id, err := uuid.FromBytes(b)
		if err != nil {
			return "", fmt.Errorf("UUID statistic: %w", err)
		}
		return id.String(), nil
	case domain.LogicalFloat16:
		b, ok := v.(domain.FixedLenByteArrayValue)
		if !ok || len(b) != 2 {
			return "", fmt.Errorf("FLOAT16 statistic must be 2 fixed bytes")
		}
		f := halfToFloat32(binary.LittleEndian.Uint16(b))
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case domain.LogicalInterval:
		b, ok := v.(domain.FixedLenByteArrayValue)
		if !ok || len(b) != 12 {
			return "", fmt.Errorf("INTERVAL statistic must be 12 fixed bytes")
		}
		return fmt.Sprintf("%d months %d days %d ms",
			binary.LittleEndian.Uint32(b[0:4]),
			binary.LittleEndian.Uint32(b[4:8]),
			binary.LittleEndian.Uint32(b[8:12])), nil
	default:
		return formatPhysical(v), nil
	}
}

func mismatch(v domain.Value, lt *domain.LogicalType) error {
	return fmt.Errorf("%s statistic cannot annotate physical type %s", lt.Name, v.Physical())
}

func bytesOf(v domain.Value) ([]byte, bool) {
	switch b := v.(type) {
	case domain.ByteArrayValue:
		return b, true
	case domain.FixedLenByteArrayValue:
		return b, true
	default:
		return nil, false
	}
}

func formatPhysical(v domain.Value) string {
	switch val := v.(type) {
	case domain.BoolValue:
		return strconv.FormatBool(bool(val))
	case domain.Int32Value:
		return strconv.FormatInt(int64(val), 10)
	case domain.Int64Value:
		return strconv.FormatInt(int64(val), 10)
	case domain.Int96Value:
		return int96Time(val).Format(time.RFC3339Nano)
	case domain.FloatValue:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case domain.DoubleValue:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case domain.ByteArrayValue:
		if utf8.Valid(val) {
			return string(val)
		}
		return "0x" + strings.ToUpper(hex.EncodeToString(val))
	case domain.FixedLenByteArrayValue:
		return "0x" + strings.ToUpper(hex.EncodeToString(val))
	default:
		return fmt.Sprint(v)
	}
}

// int96Time converts the legacy Impala timestamp layout
func int96Time(v domain.Int96Value) time.Time {
	nanos := int64(binary.LittleEndian.Uint64(v[0:8]))
	julian := int64(binary.LittleEndian.Uint32(v[8:12]))
	days := julian - julianUnixEpoch
	return time.Unix(days*86400, 0).UTC().Add(time.Duration(nanos))
}

func formatDecimal(v domain.Value, lt *domain.LogicalType) (string, error) {
	unscaled := new(big.Int)
	switch val := v.(type) {
	case domain.Int32Value:
		unscaled.SetInt64(int64(val))
	case domain.Int64Value:
		unscaled.SetInt64(int64(val))
	case domain.ByteArrayValue:
		setTwosComplement(unscaled, val)
	case domain.FixedLenByteArrayValue:
		setTwosComplement(unscaled, val)
	default:
		return "", mismatch(v, lt)
	}

	digits := unscaled.String()
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	if lt.Precision > 0 && len(strings.TrimLeft(digits, "0")) > int(lt.Precision) {
		return "", fmt.Errorf("decimal %s exceeds precision %d", unscaled, lt.Precision)
	}
	if lt.Scale > 0 {
		scale := int(lt.Scale)
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if neg {
		digits = "-" + digits
	}
	return digits, nil
}

// setTwosComplement loads a big-endian two's complement integer
func setTwosComplement(z *big.Int, b []byte) {
	z.SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		z.Sub(z, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
}

func unitDuration(unit string) (time.Duration, bool) {
	switch unit {
	case "MILLIS":
		return time.Millisecond, true
	case "MICROS":
		return time.Microsecond, true
	case "NANOS":
		return time.Nanosecond, true
	default:
		return 0, false
	}
}

func integerOf(v domain.Value) (int64, bool) {
	switch val := v.(type) {
	case domain.Int32Value:
		return int64(val), true
	case domain.Int64Value:
		return int64(val), true
	default:
		return 0, false
	}
}

func formatTime(v domain.Value, lt *domain.LogicalType) (string, error) {
	n, ok := integerOf(v)
	unit, known := unitDuration(lt.Unit)
	if !ok || !known {
		return "", mismatch(v, lt)
	}
	if n < 0 || n >= nanosPerDay/int64(unit) {
		return "", fmt.Errorf("TIME statistic %d is outside a day", n)
	}
	layout := "15:04:05.000"
	switch unit {
	case time.Microsecond:
		layout = "15:04:05.000000"
	case time.Nanosecond:
		layout = "15:04:05.000000000"
	}
	return time.Unix(0, 0).UTC().Add(time.Duration(n) * unit).Format(layout), nil
}

func formatTimestamp(v domain.Value, lt *domain.LogicalType) (string, error) {
	n, ok := v.(domain.Int64Value)
	unit, known := unitDuration(lt.Unit)
	if !ok || !known {
		return "", mismatch(v, lt)
	}
	var ts time.Time
	switch unit {
	case time.Millisecond:
		ts = time.UnixMilli(int64(n))
	case time.Microsecond:
		ts = time.UnixMicro(int64(n))
	default:
		ts = time.Unix(0, int64(n))
	}
	ts = ts.UTC()
	if lt.IsAdjustedToUTC {
		return ts.Format(time.RFC3339Nano), nil
	}
	return ts.Format("2006-01-02T15:04:05.999999999"), nil
}

func formatInteger(v domain.Value, lt *domain.LogicalType) (string, error) {
	n, ok := integerOf(v)
	if !ok {
		return "", mismatch(v, lt)
	}
	width := lt.BitWidth
	if width <= 0 || width > 64 {
		return "", fmt.Errorf("INTEGER bit width %d is invalid", width)
	}

	if !lt.IsSigned {
		var u uint64
		if _, is32 := v.(domain.Int32Value); is32 {
			u = uint64(uint32(n))
		} else {
			u = uint64(n)
		}
		if width < 64 && u>>uint(width) != 0 {
			return "", fmt.Errorf("value %d does not fit unsigned %d bits", u, width)
		}
		return strconv.FormatUint(u, 10), nil
	}

	if width < 64 {
		lo, hi := -(int64(1) << uint(width-1)), int64(1)<<uint(width-1)-1
		if n < lo || n > hi {
			return "", fmt.Errorf("value %d does not fit signed %d bits", n, width)
		}
	}
	return strconv.FormatInt(n, 10), nil
}

// halfToFloat32 converts an IEEE 754 binary16 value
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// subnormal: renormalize
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		return math.Float32frombits(sign | e<<23 | frac<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | frac<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | frac<<13)
	}
}
