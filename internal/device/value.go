package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType is the type tag of a Value.
type ValueType string

// Supported value types.
const (
	TypeInvalid ValueType = ""
	TypeBool    ValueType = "bool"
	TypeInt     ValueType = "int"
	TypeFloat   ValueType = "float"
	TypeString  ValueType = "string"
)

// Value is a tagged parameter value: exactly one of bool, int64, float64 or
// string. The zero Value is invalid and is never accepted by a Param.
//
// Values are immutable and safe to copy.
type Value struct {
	typ ValueType
	b   bool
	i   int64
	f   float64
	s   string
}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{typ: TypeBool, b: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{typ: TypeInt, i: i} }

// Float returns a floating point Value.
func Float(f float64) Value { return Value{typ: TypeFloat, f: f} }

// String returns a string Value.
func String(s string) Value { return Value{typ: TypeString, s: s} }

// Type returns the value's type tag.
func (v Value) Type() ValueType { return v.typ }

// IsValid reports whether the value carries a type tag.
func (v Value) IsValid() bool { return v.typ != TypeInvalid }

// AsBool returns the boolean payload. It is false for non-bool values.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer payload. It is 0 for non-int values.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the float payload. It is 0 for non-float values.
func (v Value) AsFloat() float64 { return v.f }

// AsString returns the string payload. It is "" for non-string values.
func (v Value) AsString() string { return v.s }

// Interface returns the payload as a plain Go value (bool, int64, float64,
// string), or nil for the zero Value.
func (v Value) Interface() any {
	switch v.typ {
	case TypeBool:
		return v.b
	case TypeInt:
		return v.i
	case TypeFloat:
		return v.f
	case TypeString:
		return v.s
	default:
		return nil
	}
}

// Float64 returns the value as a float64 for telemetry.
// Booleans map to 0/1; strings and invalid values report ok=false.
func (v Value) Float64() (f float64, ok bool) {
	switch v.typ {
	case TypeBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case TypeInt:
		return float64(v.i), true
	case TypeFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal reports whether two values have the same tag and payload.
func (v Value) Equal(o Value) bool {
	return v == o
}

// String formats the payload for logging.
func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeString:
		return v.s
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the value as a bare JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a bare JSON scalar, inferring the tag: integral
// numbers become int, other numbers float. A float with an integral payload
// therefore reads back as int. null yields the zero Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	var typ ValueType
	switch n := raw.(type) {
	case nil:
		*v = Value{}
		return nil
	case bool:
		typ = TypeBool
	case string:
		typ = TypeString
	case json.Number:
		typ = TypeFloat
		if _, err := n.Int64(); err == nil {
			typ = TypeInt
		}
	default:
		return fmt.Errorf("%w: cannot decode %T as a value", ErrTypeMismatch, raw)
	}

	decoded, err := Coerce(typ, raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// Coerce converts a decoded JSON scalar into a Value of type typ.
//
// JSON numbers arrive as float64 (or json.Number); an int parameter accepts
// them only when they are integral. Any other combination fails with
// ErrTypeMismatch.
//
// Parameters:
//   - typ: The target parameter's value type
//   - raw: Decoded JSON value (bool, float64, json.Number, string, int types)
//
// Returns:
//   - Value: The converted value
//   - error: ErrTypeMismatch (wrapped) when raw cannot represent typ
func Coerce(typ ValueType, raw any) (Value, error) {
	switch typ {
	case TypeBool:
		if b, ok := raw.(bool); ok {
			return Bool(b), nil
		}
	case TypeString:
		if s, ok := raw.(string); ok {
			return String(s), nil
		}
	case TypeInt:
		if i, ok := toInt(raw); ok {
			return Int(i), nil
		}
	case TypeFloat:
		if f, ok := toFloat(raw); ok {
			return Float(f), nil
		}
	}
	return Value{}, fmt.Errorf("%w: cannot use %T as %s", ErrTypeMismatch, raw, typ)
}

// toInt converts integral numeric inputs to int64.
func toInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// toFloat converts numeric inputs to float64.
func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// parseStoredValue decodes a JSON-encoded value persisted with its type tag.
func parseStoredValue(typ ValueType, data string) (Value, error) {
	var raw any
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decoding stored value: %w", err)
	}
	return Coerce(typ, raw)
}
