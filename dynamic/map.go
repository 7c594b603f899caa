//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package dynamic

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Entry is a single key/value pair in a Map.
type Entry struct {
	Key   Value
	Value Value
}

// Map is an ordered mapping from dynamic values to dynamic values. Entries
// are kept sorted by key (type tag first, then native order), so two maps
// holding the same entries are equal regardless of insertion order.
type Map struct {
	entries []Entry
}

// MapOf builds a map from the given entries. Later duplicates win.
func MapOf(entries ...Entry) Map {
	var m Map
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

// Len returns the number of entries.
func (m Map) Len() int { return len(m.entries) }

// Entries returns the entries in key order. The slice must not be
// mutated.
func (m Map) Entries() []Entry { return m.entries }

func (m Map) search(key Value) (int, bool) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return Compare(m.entries[i].Key, key) >= 0
	})
	return i, i < len(m.entries) && m.entries[i].Key.Equal(key)
}

// Get looks up a key.
func (m Map) Get(key Value) (Value, bool) {
	i, ok := m.search(key)
	if !ok {
		return Nil, false
	}
	return m.entries[i].Value, true
}

// Set inserts or replaces the entry for key.
func (m *Map) Set(key, value Value) {
	i, ok := m.search(key)
	if ok {
		m.entries[i].Value = value
		return
	}
	m.entries = append(m.entries, Entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = Entry{Key: key, Value: value}
}

// Delete removes the entry for key, if present.
func (m *Map) Delete(key Value) {
	i, ok := m.search(key)
	if !ok {
		return
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
}

// GetField queries a map for a field with a key matching the given string.
// A missing field is a MissingFieldError.
func GetField(m Map, field string) (Value, error) {
	v, ok := m.Get(NewString(field))
	if !ok {
		return Nil, &MissingFieldError{Field: field}
	}
	return v, nil
}

// HasField is GetField with a presence flag instead of an error.
func HasField(m Map, field string) (Value, bool) {
	return m.Get(NewString(field))
}

// GetUnionTag checks that a map meant to represent a union value contains
// exactly one entry and returns its key.
func GetUnionTag(m Map) (Value, error) {
	if m.Len() != 1 {
		return Nil, &MultifieldUnionError{FieldCount: m.Len()}
	}
	return m.entries[0].Key, nil
}

func writeUint64(d *xxhash.Digest, x uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], x)
	d.Write(buf[:])
}

func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}
