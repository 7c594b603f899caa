//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package dynamic

import "fmt"

// DeepSizer is implemented by types that can report the total number of
// bytes they own. The caches use it for eviction accounting.
type DeepSizer interface {
	DeepSize() int
}

// Immutable is a shared, deeply-immutable owner of a value. It is what
// the memory cache stores: the wrapped value must never be mutated after
// construction, which is what makes handing the same instance to every
// interested party safe.
//
// The wrapped value is usually a dynamic Value, but any result of a
// reproducible computation qualifies.
type Immutable struct {
	value any
	size  int
}

// MakeImmutable wraps x. The deep size is taken from x itself when it is
// a Value or implements DeepSizer; strings and byte slices report their
// length; anything else is charged a fixed overhead.
func MakeImmutable(x any) *Immutable {
	return &Immutable{value: x, size: deepSizeOf(x)}
}

func deepSizeOf(x any) int {
	const fallbackSize = 16
	switch v := x.(type) {
	case Value:
		return v.DeepSize()
	case DeepSizer:
		return v.DeepSize()
	case string:
		return fallbackSize + len(v)
	case []byte:
		return fallbackSize + len(v)
	default:
		return fallbackSize
	}
}

// Value returns the wrapped value.
func (im *Immutable) Value() any { return im.value }

// DeepSize implements DeepSizer.
func (im *Immutable) DeepSize() int { return im.size }

// Equal reports whether two immutables wrap equal values. Dynamic values
// compare structurally; other types compare by interface equality.
func (im *Immutable) Equal(other *Immutable) bool {
	if im == other {
		return true
	}
	if im == nil || other == nil {
		return false
	}
	if a, ok := im.value.(Value); ok {
		if b, ok := other.value.(Value); ok {
			return a.Equal(b)
		}
		return false
	}
	return im.value == other.value
}

// Hash returns a structural hash when the wrapped value is a dynamic
// Value and 0 otherwise.
func (im *Immutable) Hash() uint64 {
	if v, ok := im.value.(Value); ok {
		return v.Hash()
	}
	return 0
}

// Cast downcasts the wrapped value to its original type. On failure it
// returns an error naming the wrapped type and the requested type (for a
// wrapped dynamic Value, its dynamic type); the error is not a
// TypeMismatchError.
func Cast[T any](im *Immutable) (T, error) {
	v, ok := im.value.(T)
	if !ok {
		var zero T
		return zero, castError(im.value, zero)
	}
	return v, nil
}

func castError[T any](actual any, zero T) error {
	return &immutableCastError{actual: actual, expected: zero}
}

type immutableCastError struct {
	actual   any
	expected any
}

func (e *immutableCastError) Error() string {
	return "immutable cast: value is " + typeName(e.actual) +
		", want " + typeName(e.expected)
}

func typeName(x any) string {
	if v, ok := x.(Value); ok {
		return "dynamic " + v.Type().String()
	}
	return fmt.Sprintf("%T", x)
}
