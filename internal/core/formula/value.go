package formula

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NAText is the wire and display form of a value that is not available
const NAText = "NA"

// Kind discriminates the three shapes a resolved value can take
type Kind uint8

const (
	KindNA Kind = iota
	KindNumber
	KindString
)

// Value is a resolved statistic: a number, a string, or NA.
// The zero Value is NA.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// NA returns the "not available" value
func NA() Value {
	return Value{}
}

// Number wraps a float. NaN and infinities collapse to NA so they never
// reach formatting or rendering.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NA()
	}
	return Value{kind: KindNumber, num: f}
}

// String wraps a string value
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// FromInterface converts a raw statistics value into a Value.
// Unsupported types (bool, nil, nested objects) and the "NA" marker
// resolve to NA.
func FromInterface(raw interface{}) Value {
	switch v := raw.(type) {
	case Value:
		return v
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int8:
		return Number(float64(v))
	case int16:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case uint:
		return Number(float64(v))
	case uint8:
		return Number(float64(v))
	case uint16:
		return Number(float64(v))
	case uint32:
		return Number(float64(v))
	case uint64:
		return Number(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return NA()
		}
		return Number(f)
	case string:
		if v == NAText {
			return NA()
		}
		return String(v)
	default:
		return NA()
	}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNA() bool     { return v.kind == KindNA }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsString() bool { return v.kind == KindString }

// AsFloat returns the numeric payload
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsString returns the string payload
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Coerce returns the value as a number for arithmetic. Numeric strings are
// parsed; everything else is NA.
func (v Value) Coerce() Value {
	switch v.kind {
	case KindNumber:
		return v
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return NA()
		}
		return Number(f)
	default:
		return NA()
	}
}

// Equal reports whether two values have the same kind and payload
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	default:
		return true
	}
}

// String renders the value without any formatting rules applied
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	default:
		return NAText
	}
}

// MarshalJSON encodes NA as "NA", numbers as JSON numbers and strings as
// JSON strings
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case KindString:
		return json.Marshal(v.str)
	default:
		return json.Marshal(NAText)
	}
}

// UnmarshalJSON accepts numbers, strings, null and the "NA" marker
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

// Stats is a flat statistics record for one project
type Stats map[string]interface{}

// Lookup resolves a plain variable name
func (s Stats) Lookup(name string) Value {
	raw, ok := s[name]
	if !ok {
		return NA()
	}
	return FromInterface(raw)
}

// Clone returns a shallow copy that can be mutated independently
func (s Stats) Clone() Stats {
	out := make(Stats, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Subset returns the entries named in keys. Absent keys stay absent.
func (s Stats) Subset(keys []string) Stats {
	out := make(Stats, len(keys))
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Fingerprint returns a stable hash of the record. encoding/json sorts map
// keys, so equal records always hash equally.
func (s Stats) Fingerprint() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
