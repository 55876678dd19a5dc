package sensor

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is a single channel reading: either a number or a text status
// such as "N/A" or a wind direction label.
type Value struct {
	num    float64
	text   string
	isNum  bool
	isNull bool
}

// Number creates a numeric value.
func Number(f float64) Value { return Value{num: f, isNum: true} }

// Text creates a text value.
func Text(s string) Value { return Value{text: s} }

// Null creates an explicit absent value.
func Null() Value { return Value{isNull: true} }

// IsNumber reports whether v holds a number, finite or not.
func (v Value) IsNumber() bool { return v.isNum }

// Float returns the numeric value and true only for finite numbers.
func (v Value) Float() (float64, bool) {
	if !v.isNum || math.IsNaN(v.num) || math.IsInf(v.num, 0) {
		return 0, false
	}
	return v.num, true
}

// String renders the value for messages and logs.
func (v Value) String() string {
	switch {
	case v.isNum:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case v.isNull:
		return "null"
	default:
		return v.text
	}
}

// MarshalJSON writes numbers as JSON numbers and everything else as strings.
// Non-finite numbers have no JSON form and are written as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isNum {
		if _, ok := v.Float(); !ok {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	}
	if v.isNull {
		return []byte("null"), nil
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts a number, a string or null. Strings stay text even
// when they look numeric: the device reports text only for status channels.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny converts a decoded JSON value or a Go numeric into a Value.
// Booleans, maps and slices become their text form.
func FromAny(raw any) Value {
	if raw == nil {
		return Null()
	}
	if s, ok := raw.(string); ok {
		return Text(s)
	}
	if f, ok := toFloat64(raw); ok {
		return Number(f)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return Text("")
	}
	return Text(string(b))
}

// NormalizeValues converts a heterogeneous value list into Values.
func NormalizeValues(raw []any) []Value {
	out := make([]Value, len(raw))
	for i, r := range raw {
		out[i] = FromAny(r)
	}
	return out
}

func toFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
