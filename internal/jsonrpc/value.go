// ABOUTME: Tagged-union representation of decoded JSON values
// ABOUTME: Fixed-priority decoding plus coercing accessors that never fail

package jsonrpc

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindObject
	KindArray
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "null"
	}
}

// Value is one decoded JSON value. The zero Value is null.
type Value struct {
	kind     ValueKind
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	objVal   map[string]Value
	arrVal   []Value
}

func Null() Value                    { return Value{} }
func Bool(v bool) Value              { return Value{kind: KindBool, boolVal: v} }
func Int(v int64) Value              { return Value{kind: KindInt, intVal: v} }
func Float(v float64) Value          { return Value{kind: KindFloat, floatVal: v} }
func String(v string) Value          { return Value{kind: KindString, strVal: v} }
func Object(m map[string]Value) Value { return Value{kind: KindObject, objVal: m} }
func Array(items []Value) Value      { return Value{kind: KindArray, arrVal: items} }

// DecodeValue interprets raw JSON bytes as a Value. Candidate types are tried
// in a fixed order (null, bool, integer, float, string, object, array) so a
// numeric literal can never come back as a string. Undecodable input is null.
func DecodeValue(raw []byte) Value {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Null()
	}

	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		return Bool(b)
	}

	var i int64
	if err := json.Unmarshal(trimmed, &i); err == nil {
		return Int(i)
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		return Float(f)
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return String(s)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		m := make(map[string]Value, len(obj))
		for k, v := range obj {
			m[k] = DecodeValue(v)
		}
		return Object(m)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(trimmed, &arr); err == nil {
		items := make([]Value, len(arr))
		for idx, v := range arr {
			items[idx] = DecodeValue(v)
		}
		return Array(items)
	}

	return Null()
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString coerces to a string. Booleans become "true"/"false", numbers their
// decimal form; null, objects, and arrays become "".
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.strVal
	case KindBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.intVal, 10)
	case KindFloat:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	default:
		return ""
	}
}

// AsInt coerces to an integer. Floats truncate, numeric strings parse,
// booleans map to 0/1; everything else is 0.
func (v Value) AsInt() int64 {
	switch v.kind {
	case KindInt:
		return v.intVal
	case KindFloat:
		return int64(v.floatVal)
	case KindString:
		if n, err := strconv.ParseInt(v.strVal, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v.strVal, 64); err == nil {
			return int64(f)
		}
		return 0
	case KindBool:
		if v.boolVal {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// AsFloat coerces to a float64.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindFloat:
		return v.floatVal
	case KindInt:
		return float64(v.intVal)
	case KindString:
		if f, err := strconv.ParseFloat(v.strVal, 64); err == nil {
			return f
		}
		return 0
	case KindBool:
		if v.boolVal {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// AsBool coerces to a bool. Non-zero numbers and the string "true" are true.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.boolVal
	case KindInt:
		return v.intVal != 0
	case KindFloat:
		return v.floatVal != 0
	case KindString:
		b, err := strconv.ParseBool(v.strVal)
		return err == nil && b
	default:
		return false
	}
}

// AsObject returns the underlying map for object values, nil otherwise.
func (v Value) AsObject() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	return v.objVal
}

// AsArray returns the underlying slice for array values, nil otherwise.
func (v Value) AsArray() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arrVal
}

// Get returns the named member of an object value, or null.
func (v Value) Get(key string) Value {
	if v.kind != KindObject {
		return Null()
	}
	return v.objVal[key]
}

// At returns the i-th element of an array value, or null.
func (v Value) At(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arrVal) {
		return Null()
	}
	return v.arrVal[i]
}

// Lookup walks a key path through nested objects, returning null as soon as a
// segment is missing. Used by the handshake's result probing.
func (v Value) Lookup(path ...string) Value {
	cur := v
	for _, key := range path {
		cur = cur.Get(key)
	}
	return cur
}
