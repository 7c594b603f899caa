//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package dynamic implements values whose structure is determined at run
// time rather than compile time. Dynamic values are what cross external
// encoding boundaries (JSON, YAML, MessagePack) and what the caches store.
package dynamic

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Type identifies the payload stored in a Value.
type Type int

// Value types, in canonical ordering. The ordering is part of the data
// model: values of different types compare by type first.
const (
	TypeNil Type = iota
	TypeBoolean
	TypeInteger
	TypeFloat
	TypeString
	TypeBlob
	TypeDatetime
	TypeArray
	TypeMap
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return "boolean"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBlob:
		return "blob"
	case TypeDatetime:
		return "datetime"
	case TypeArray:
		return "array"
	case TypeMap:
		return "map"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Array is an ordered sequence of values.
type Array []Value

// Value is a dynamically typed value: a tag plus the corresponding payload.
// The zero Value is nil.
type Value struct {
	t Type
	v any
}

// Nil is the nil value.
var Nil = Value{}

// NewBoolean constructs a boolean value.
func NewBoolean(v bool) Value { return Value{TypeBoolean, v} }

// NewInteger constructs an integer value.
func NewInteger(v int64) Value { return Value{TypeInteger, v} }

// NewFloat constructs a float value.
func NewFloat(v float64) Value { return Value{TypeFloat, v} }

// NewString constructs a string value.
func NewString(v string) Value { return Value{TypeString, v} }

// NewBlob constructs a blob value.
func NewBlob(v Blob) Value { return Value{TypeBlob, v} }

// NewDatetime constructs a datetime value. Datetimes are stored as UTC
// instants at millisecond precision; finer precision is truncated here so
// that equal instants always compare equal.
func NewDatetime(v time.Time) Value {
	return Value{TypeDatetime, v.UTC().Truncate(time.Millisecond)}
}

// NewArray constructs an array value.
func NewArray(v Array) Value {
	if v == nil {
		v = Array{}
	}
	return Value{TypeArray, v}
}

// NewMap constructs a map value.
func NewMap(v Map) Value { return Value{TypeMap, v} }

// FromAny converts a native Go value into a dynamic value.
//
// A []any whose entries are all two-element pairs starting with strings is
// interpreted as a map; any other []any is an array. This matches the
// "array of pairs" encoding that external formats emit for maps.
func FromAny(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Nil, nil
	case Value:
		return v, nil
	case bool:
		return NewBoolean(v), nil
	case int:
		return NewInteger(int64(v)), nil
	case int32:
		return NewInteger(int64(v)), nil
	case int64:
		return NewInteger(v), nil
	case uint:
		return NewInteger(int64(v)), nil
	case uint32:
		return NewInteger(int64(v)), nil
	case uint64:
		return NewInteger(int64(v)), nil
	case float32:
		return NewFloat(float64(v)), nil
	case float64:
		return NewFloat(v), nil
	case string:
		return NewString(v), nil
	case []byte:
		return NewBlob(MakeBlob(v)), nil
	case time.Time:
		return NewDatetime(v), nil
	case Blob:
		return NewBlob(v), nil
	case Array:
		return NewArray(v), nil
	case Map:
		return NewMap(v), nil
	case []Value:
		return fromValueSlice(v)
	case []any:
		converted := make([]Value, len(v))
		for i, item := range v {
			cv, err := FromAny(item)
			if err != nil {
				return Nil, AddPathElement(err, NewInteger(int64(i)))
			}
			converted[i] = cv
		}
		return fromValueSlice(converted)
	case map[string]any:
		var m Map
		for key, item := range v {
			cv, err := FromAny(item)
			if err != nil {
				return Nil, AddPathElement(err, NewString(key))
			}
			m.Set(NewString(key), cv)
		}
		return NewMap(m), nil
	default:
		return Nil, fmt.Errorf("cannot convert %T to a dynamic value", x)
	}
}

// fromValueSlice applies the brace-initializer rule: a sequence whose
// entries are all [string, value] pairs is a map, otherwise an array.
func fromValueSlice(items []Value) (Value, error) {
	isMap := len(items) > 0
	for _, item := range items {
		pair, err := item.AsArray()
		if err != nil || len(pair) != 2 || pair[0].Type() != TypeString {
			isMap = false
			break
		}
	}
	if !isMap {
		return NewArray(Array(items)), nil
	}
	var m Map
	for _, item := range items {
		pair, _ := item.AsArray()
		m.Set(pair[0], pair[1])
	}
	return NewMap(m), nil
}

// MustFromAny is FromAny for statically known-convertible values.
// It panics on conversion failure and exists for literals in tests and
// request construction.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Type returns the tag of the stored payload.
func (v Value) Type() Type { return v.t }

// checkType verifies that the value holds the expected type.
func (v Value) checkType(expected Type) error {
	if v.t != expected {
		return &TypeMismatchError{Expected: expected, Actual: v.t}
	}
	return nil
}

// AsBoolean returns the boolean payload.
func (v Value) AsBoolean() (bool, error) {
	if err := v.checkType(TypeBoolean); err != nil {
		return false, err
	}
	return v.v.(bool), nil
}

// AsInteger returns the integer payload.
func (v Value) AsInteger() (int64, error) {
	if err := v.checkType(TypeInteger); err != nil {
		return 0, err
	}
	return v.v.(int64), nil
}

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, error) {
	if err := v.checkType(TypeFloat); err != nil {
		return 0, err
	}
	return v.v.(float64), nil
}

// AsString returns the string payload.
func (v Value) AsString() (string, error) {
	if err := v.checkType(TypeString); err != nil {
		return "", err
	}
	return v.v.(string), nil
}

// AsBlob returns the blob payload.
func (v Value) AsBlob() (Blob, error) {
	if err := v.checkType(TypeBlob); err != nil {
		return Blob{}, err
	}
	return v.v.(Blob), nil
}

// AsDatetime returns the datetime payload.
func (v Value) AsDatetime() (time.Time, error) {
	if err := v.checkType(TypeDatetime); err != nil {
		return time.Time{}, err
	}
	return v.v.(time.Time), nil
}

// AsArray returns the array payload. An empty map is accepted as an empty
// array; external encodings conflate the two.
func (v Value) AsArray() (Array, error) {
	if v.t == TypeMap && v.v.(Map).Len() == 0 {
		return Array{}, nil
	}
	if err := v.checkType(TypeArray); err != nil {
		return nil, err
	}
	return v.v.(Array), nil
}

// AsMap returns the map payload. An empty array is accepted as an empty
// map; external encodings conflate the two.
func (v Value) AsMap() (Map, error) {
	if v.t == TypeArray && len(v.v.(Array)) == 0 {
		return Map{}, nil
	}
	if err := v.checkType(TypeMap); err != nil {
		return Map{}, err
	}
	return v.v.(Map), nil
}

// Apply dispatches fn to the concrete payload of v: nil for Nil, bool,
// int64, float64, string, Blob, time.Time, Array, or Map. It is the
// canonical way to fan out over value types; code outside this package
// should not switch on Type directly.
func Apply(fn func(payload any), v Value) {
	fn(v.v)
}

// ApplyPair dispatches fn to the payloads of two values of the same type.
// If the types differ, it returns a TypeMismatchError without invoking fn.
func ApplyPair(fn func(a, b any), x, y Value) error {
	if x.t != y.t {
		return &TypeMismatchError{Expected: x.t, Actual: y.t}
	}
	fn(x.v, y.v)
	return nil
}

// Equal reports structural, type-aware equality. Values of different
// types are never equal.
func (v Value) Equal(other Value) bool {
	return Compare(v, other) == 0
}

// Compare orders two values: first by type (canonical tag order), then by
// the payload's native order.
func Compare(a, b Value) int {
	if a.t != b.t {
		if a.t < b.t {
			return -1
		}
		return 1
	}
	var result int
	Apply(func(payload any) {
		switch x := payload.(type) {
		case nil:
			result = 0
		case bool:
			result = compareBool(x, b.v.(bool))
		case int64:
			result = compareOrdered(x, b.v.(int64))
		case float64:
			result = compareOrdered(x, b.v.(float64))
		case string:
			result = compareOrdered(x, b.v.(string))
		case Blob:
			result = x.Compare(b.v.(Blob))
		case time.Time:
			result = x.Compare(b.v.(time.Time))
		case Array:
			result = compareArrays(x, b.v.(Array))
		case Map:
			result = compareMaps(x, b.v.(Map))
		}
	}, a)
	return result
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareArrays(a, b Array) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareOrdered(int64(len(a)), int64(len(b)))
}

func compareMaps(a, b Map) int {
	for i := 0; i < a.Len() && i < b.Len(); i++ {
		ae, be := a.entries[i], b.entries[i]
		if c := Compare(ae.Key, be.Key); c != 0 {
			return c
		}
		if c := Compare(ae.Value, be.Value); c != 0 {
			return c
		}
	}
	return compareOrdered(int64(a.Len()), int64(b.Len()))
}

// Hash returns a structural, type-aware hash of the value. Equal values
// hash equal.
func (v Value) Hash() uint64 {
	d := xxhash.New()
	v.hashInto(d)
	return d.Sum64()
}

func (v Value) hashInto(d *xxhash.Digest) {
	var tag [1]byte
	tag[0] = byte(v.t)
	d.Write(tag[:])
	Apply(func(payload any) {
		switch x := payload.(type) {
		case nil:
		case bool:
			if x {
				d.WriteString("t")
			} else {
				d.WriteString("f")
			}
		case int64:
			writeUint64(d, uint64(x))
		case float64:
			writeUint64(d, floatBits(x))
		case string:
			d.WriteString(x)
		case Blob:
			d.Write(x.Bytes())
		case time.Time:
			writeUint64(d, uint64(x.UnixMilli()))
		case Array:
			for _, item := range x {
				item.hashInto(d)
			}
		case Map:
			for _, e := range x.entries {
				e.Key.hashInto(d)
				e.Value.hashInto(d)
			}
		}
	}, v)
}

// DeepSize estimates the total number of bytes owned by the value,
// including nested payloads. The caches use it for eviction accounting.
func (v Value) DeepSize() int {
	const valueOverhead = 16
	size := valueOverhead
	Apply(func(payload any) {
		switch x := payload.(type) {
		case string:
			size += len(x)
		case Blob:
			size += x.Size()
		case Array:
			for _, item := range x {
				size += item.DeepSize()
			}
		case Map:
			for _, e := range x.entries {
				size += e.Key.DeepSize() + e.Value.DeepSize()
			}
		}
	}, v)
	return size
}

// String renders the value for diagnostics. The rendering is not a wire
// format; use the encoding package for that.
func (v Value) String() string {
	var s string
	Apply(func(payload any) {
		switch x := payload.(type) {
		case nil:
			s = "nil"
		case time.Time:
			s = x.Format(time.RFC3339Nano)
		case Blob:
			s = x.String()
		case Array:
			s = "["
			for i, item := range x {
				if i > 0 {
					s += ","
				}
				s += item.String()
			}
			s += "]"
		case Map:
			s = "{"
			for i, e := range x.entries {
				if i > 0 {
					s += ","
				}
				s += e.Key.String() + ":" + e.Value.String()
			}
			s += "}"
		default:
			s = fmt.Sprintf("%v", x)
		}
	}, v)
	return s
}
