//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package identity implements the structural IDs used as cache keys.
// An ID is composed from primitive IDs; two IDs are equal iff their
// compositions are equal, and the canonical string form is what external
// stores (the disk cache) index by.
package identity

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ID is a structural cache key.
type ID interface {
	// Equal reports structural equality with another ID.
	Equal(other ID) bool
	// Hash returns a structural hash. Equal IDs hash equal.
	Hash() uint64
	// String returns the canonical form used as the external cache key.
	String() string
}

// stringID keys by a string value.
type stringID struct {
	value string
}

func (id stringID) Equal(other ID) bool {
	o, ok := other.(stringID)
	return ok && id.value == o.value
}

func (id stringID) Hash() uint64 {
	return xxhash.Sum64String("s:" + id.value)
}

func (id stringID) String() string {
	return strconv.Quote(id.value)
}

// integerID keys by an integer value.
type integerID struct {
	value int64
}

func (id integerID) Equal(other ID) bool {
	o, ok := other.(integerID)
	return ok && id.value == o.value
}

func (id integerID) Hash() uint64 {
	return xxhash.Sum64String("i:" + strconv.FormatInt(id.value, 10))
}

func (id integerID) String() string {
	return strconv.FormatInt(id.value, 10)
}

// functionID keys by the identity of a monomorphic function. Two
// functionIDs are equal iff they were made from the same function value.
type functionID struct {
	fn uintptr
}

func (id functionID) Equal(other ID) bool {
	o, ok := other.(functionID)
	return ok && id.fn == o.fn
}

func (id functionID) Hash() uint64 {
	return xxhash.Sum64String("f:" + strconv.FormatUint(uint64(id.fn), 16))
}

func (id functionID) String() string {
	return "fn@" + strconv.FormatUint(uint64(id.fn), 16)
}

// compositeID keys by an ordered composition of IDs.
type compositeID struct {
	parts []ID
}

func (id compositeID) Equal(other ID) bool {
	o, ok := other.(compositeID)
	if !ok || len(id.parts) != len(o.parts) {
		return false
	}
	for i, part := range id.parts {
		if !part.Equal(o.parts[i]) {
			return false
		}
	}
	return true
}

func (id compositeID) Hash() uint64 {
	d := xxhash.New()
	d.WriteString("c:")
	var buf [8]byte
	for _, part := range id.parts {
		h := part.Hash()
		for i := range buf {
			buf[i] = byte(h >> (8 * i))
		}
		d.Write(buf[:])
	}
	return d.Sum64()
}

func (id compositeID) String() string {
	parts := make([]string, len(id.parts))
	for i, part := range id.parts {
		parts[i] = part.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Make builds a primitive ID from a base value: a string, an int, int32,
// int64, uint32 or uint64, or a function. Other kinds (including the
// remaining integer kinds) panic; keys are always
// statically known at call sites.
func Make(x any) ID {
	switch v := x.(type) {
	case ID:
		return v
	case string:
		return stringID{value: v}
	case int:
		return integerID{value: int64(v)}
	case int32:
		return integerID{value: int64(v)}
	case int64:
		return integerID{value: v}
	case uint32:
		return integerID{value: int64(v)}
	case uint64:
		return integerID{value: int64(v)}
	}
	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Func {
		return functionID{fn: rv.Pointer()}
	}
	panic(fmt.Sprintf("identity: cannot make an ID from %T", x))
}

// Combine composes IDs in order. Composition is not commutative:
// Combine(a, b) != Combine(b, a) when a != b.
func Combine(parts ...ID) ID {
	copied := make([]ID, len(parts))
	copy(copied, parts)
	return compositeID{parts: copied}
}

// Captured owns a copy of an ID for storage in a cache record. IDs built
// by this package are already immutable values, so capturing is
// reference-taking; the type exists so record-storage sites read as
// taking ownership.
type Captured struct {
	id ID
}

// Capture captures id.
func Capture(id ID) Captured {
	return Captured{id: id}
}

// ID returns the captured ID, or nil if nothing was captured.
func (c Captured) ID() ID { return c.id }

// Matches reports whether the captured ID equals other.
func (c Captured) Matches(other ID) bool {
	return c.id != nil && other != nil && c.id.Equal(other)
}
