package feature

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"reflect"

	json "github.com/goccy/go-json"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull       Kind = iota // JSON null
	KindBool                   // true or false
	KindNumber                 // finite float64
	KindString                 // UTF-8 string
	KindStructured             // JSON object or array
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a resolved feature value. The zero Value is null.
//
// false, null, 0 and "" are distinct known values; none of them is the same
// as an unknown feature, even though UnknownValue is false.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	v    any // map[string]any or []any, JSON-normalized
}

// UnknownValue is returned when resolving a feature that has no resolver.
var UnknownValue = Bool(false)

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value. Callers must not pass NaN or infinities;
// use ValueOf to have them rejected.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int returns n as a numeric value.
func Int(n int64) Value { return Value{kind: KindNumber, n: float64(n)} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind reports which kind of value v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsActive reports whether v turns a feature on. Only null and false are
// inactive; 0 and "" are active.
func (v Value) IsActive() bool { return !(v.kind == KindNull || (v.kind == KindBool && !v.b)) }

// String returns the JSON encoding of v.
func (v Value) String() string { return string(v.mustJSON()) }

func (v Value) GoString() string { return "feature.Value(" + v.String() + ")" }

// Structured builds a value from a JSON-compatible map or slice. The input is
// normalized through JSON, so later changes to it do not leak into the value.
func Structured(x any) (Value, error) {
	raw, err := json.Marshal(x)
	if err != nil {
		return Value{}, errors.Join(ErrInvalidValue, err)
	}
	var out Value
	if err := out.UnmarshalJSON(raw); err != nil {
		return Value{}, err
	}
	if out.kind != KindStructured {
		return Value{}, fmt.Errorf("%w: %s is not a map or slice", ErrInvalidValue, out.kind)
	}
	return out, nil
}

// ValueOf converts a Go value into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case float32:
		return numberOf(float64(t))
	case float64:
		return numberOf(t)
	}

	switch reflect.ValueOf(x).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return Structured(x)
	case reflect.Pointer:
		rv := reflect.ValueOf(x)
		if rv.IsNil() {
			return Null(), nil
		}
		return ValueOf(rv.Elem().Interface())
	}
	return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, x)
}

// MustValueOf is like ValueOf but panics on error. Intended for literals.
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

func numberOf(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: %v is not a finite number", ErrInvalidValue, f)
	}
	return Number(f), nil
}

// AsBool returns the boolean payload and whether the value is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload and whether the value is a number.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string payload and whether the value is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Any returns the payload as a plain Go value: nil, bool, float64, string,
// map[string]any or []any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindStructured:
		return v.v
	default:
		return nil
	}
}

// Decode unmarshals a structured value into dst.
func (v Value) Decode(dst any) error {
	raw, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Equal reports whether both values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	default:
		return reflect.DeepEqual(v.v, o.v)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindStructured:
		return json.Marshal(v.v)
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidValue, v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Join(ErrInvalidValue, err)
	}
	switch t := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(t)
	case float64:
		*v = Number(t)
	case string:
		*v = String(t)
	case map[string]any, []any:
		*v = Value{kind: KindStructured, v: t}
	default:
		return fmt.Errorf("%w: unexpected json type %T", ErrInvalidValue, raw)
	}
	return nil
}

func (v Value) mustJSON() []byte {
	raw, err := v.MarshalJSON()
	if err != nil {
		return []byte("<invalid>")
	}
	return raw
}
