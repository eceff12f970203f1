package offsets

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decode converts raw bytes to a host value: float64 for numeric types,
// string for strings (trimmed at the first NUL) and []byte for bytes.
func Decode(d Definition, raw []byte) (any, error) {
	if len(raw) < d.Size {
		return nil, fmt.Errorf("%s: got %d bytes, want %d", d.Name, len(raw), d.Size)
	}
	raw = raw[:d.Size]

	switch d.Type {
	case TypeString:
		s := string(raw)
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return s, nil
	case TypeBytes:
		return append([]byte(nil), raw...), nil
	case TypeBCD16:
		v, err := fromBCD(binary.LittleEndian.Uint16(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		return float64(v)*d.scale() + d.Bias, nil
	}

	var v float64
	switch d.Type {
	case TypeInt8:
		v = float64(int8(raw[0]))
	case TypeUint8:
		v = float64(raw[0])
	case TypeInt16:
		v = float64(int16(binary.LittleEndian.Uint16(raw)))
	case TypeUint16:
		v = float64(binary.LittleEndian.Uint16(raw))
	case TypeInt32:
		v = float64(int32(binary.LittleEndian.Uint32(raw)))
	case TypeUint32:
		v = float64(binary.LittleEndian.Uint32(raw))
	case TypeInt64:
		v = float64(int64(binary.LittleEndian.Uint64(raw)))
	case TypeUint64:
		v = float64(binary.LittleEndian.Uint64(raw))
	case TypeFloat32:
		v = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
	case TypeFloat64:
		v = math.Float64frombits(binary.LittleEndian.Uint64(raw))
	default:
		return nil, fmt.Errorf("%s: %w: type %q", d.Name, ErrType, d.Type)
	}
	return v*d.scale() + d.Bias, nil
}

// Encode converts a host value to d.Size raw bytes. Numeric types accept
// any Go number; the raw value is (value - bias) / scale rounded to the
// nearest integer for integer types. Strings are NUL padded and must leave
// room for the terminator.
func Encode(d Definition, value any) ([]byte, error) {
	out := make([]byte, d.Size)

	switch d.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %T for string", d.Name, ErrType, value)
		}
		if len(s) >= d.Size {
			return nil, fmt.Errorf("%s: %w: %d bytes, room for %d", d.Name, ErrRange, len(s), d.Size-1)
		}
		copy(out, s)
		return out, nil
	case TypeBytes:
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %T for bytes", d.Name, ErrType, value)
		}
		if len(b) != d.Size {
			return nil, fmt.Errorf("%s: %w: %d bytes, want %d", d.Name, ErrRange, len(b), d.Size)
		}
		copy(out, b)
		return out, nil
	}

	v, err := toFloat(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}
	v = (v - d.Bias) / d.scale()
	if d.Type != TypeFloat32 && d.Type != TypeFloat64 && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return nil, rangeErr(d, v)
	}

	switch d.Type {
	case TypeFloat32:
		if math.Abs(v) > math.MaxFloat32 {
			return nil, rangeErr(d, v)
		}
		binary.LittleEndian.PutUint32(out, math.Float32bits(float32(v)))
		return out, nil
	case TypeFloat64:
		binary.LittleEndian.PutUint64(out, math.Float64bits(v))
		return out, nil
	case TypeBCD16:
		n := math.Round(v)
		if n < 0 || n > 9999 {
			return nil, rangeErr(d, n)
		}
		binary.LittleEndian.PutUint16(out, toBCD(uint16(n)))
		return out, nil
	}

	n := math.Round(v)
	lo, hi := intRange(d.Type)
	if n < lo || n > hi {
		return nil, rangeErr(d, n)
	}
	switch d.Type {
	case TypeInt8, TypeUint8:
		out[0] = byte(int64(n))
	case TypeInt16, TypeUint16:
		binary.LittleEndian.PutUint16(out, uint16(int64(n)))
	case TypeInt32, TypeUint32:
		binary.LittleEndian.PutUint32(out, uint32(int64(n)))
	case TypeInt64:
		binary.LittleEndian.PutUint64(out, uint64(int64(n)))
	case TypeUint64:
		binary.LittleEndian.PutUint64(out, uint64(n))
	default:
		return nil, fmt.Errorf("%s: %w: type %q", d.Name, ErrType, d.Type)
	}
	return out, nil
}

// ParseValue parses command line text for d: a number for numeric types,
// the text itself for strings, hex digits for bytes.
func ParseValue(d Definition, s string) (any, error) {
	switch d.Type {
	case TypeString:
		return s, nil
	case TypeBytes:
		b, err := hex.DecodeString(strings.TrimPrefix(strings.ReplaceAll(s, " ", ""), "0x"))
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", d.Name, ErrType, err)
		}
		return b, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		if n, ierr := strconv.ParseInt(strings.TrimSpace(s), 0, 64); ierr == nil {
			return float64(n), nil
		}
		return nil, fmt.Errorf("%s: %w: %q", d.Name, ErrType, s)
	}
	return v, nil
}

// Format renders a decoded value with the definition's unit.
func Format(d Definition, value any) string {
	var s string
	switch v := value.(type) {
	case float64:
		if d.Scale == 1 && d.Bias == 0 && d.Type != TypeFloat32 && d.Type != TypeFloat64 {
			s = strconv.FormatFloat(v, 'f', 0, 64)
		} else {
			s = strconv.FormatFloat(v, 'f', precision(d), 64)
		}
	case string:
		s = strconv.Quote(v)
	case []byte:
		s = hex.EncodeToString(v)
	default:
		s = fmt.Sprint(v)
	}
	if d.Unit != "" {
		s += " " + d.Unit
	}
	return s
}

// precision picks enough decimals to show one raw step.
func precision(d Definition) int {
	if d.Type == TypeFloat32 || d.Type == TypeFloat64 {
		return 6
	}
	p := int(math.Ceil(-math.Log10(d.scale()) - 1e-9))
	return max(0, min(p, 9))
}

func (d Definition) scale() float64 {
	if d.Scale == 0 {
		return 1
	}
	return d.Scale
}

func intRange(t Type) (float64, float64) {
	switch t {
	case TypeInt8:
		return math.MinInt8, math.MaxInt8
	case TypeUint8:
		return 0, math.MaxUint8
	case TypeInt16:
		return math.MinInt16, math.MaxInt16
	case TypeUint16:
		return 0, math.MaxUint16
	case TypeInt32:
		return math.MinInt32, math.MaxInt32
	case TypeUint32:
		return 0, math.MaxUint32
	case TypeInt64:
		// Largest float64 below 2^63.
		return math.MinInt64, math.Nextafter(math.MaxInt64, 0)
	default:
		return 0, math.Nextafter(math.MaxUint64, 0)
	}
}

func rangeErr(d Definition, v float64) error {
	return fmt.Errorf("%s: %w: raw %g for %s", d.Name, ErrRange, v, d.Type)
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %T for number", ErrType, value)
	}
}

func fromBCD(v uint16) (int, error) {
	n := 0
	for shift := 12; shift >= 0; shift -= 4 {
		digit := int(v>>shift) & 0xF
		if digit > 9 {
			return 0, fmt.Errorf("invalid BCD 0x%04X", v)
		}
		n = n*10 + digit
	}
	return n, nil
}

func toBCD(n uint16) uint16 {
	var v uint16
	for shift := 0; shift < 16; shift += 4 {
		v |= (n % 10) << shift
		n /= 10
	}
	return v
}
