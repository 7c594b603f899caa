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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueTypes(t *testing.T) {
	when := time.Date(2024, 5, 17, 12, 30, 0, 0, time.UTC)
	cases := []struct {
		value Value
		want  Type
	}{
		{Nil, TypeNil},
		{NewBoolean(true), TypeBoolean},
		{NewInteger(42), TypeInteger},
		{NewFloat(2.5), TypeFloat},
		{NewString("abc"), TypeString},
		{NewBlob(MakeBlob([]byte{1, 2})), TypeBlob},
		{NewDatetime(when), TypeDatetime},
		{NewArray(Array{NewInteger(1)}), TypeArray},
		{NewMap(Map{}), TypeMap},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.value.Type())
	}
}

func TestCastErrors(t *testing.T) {
	v := NewInteger(4)
	_, err := v.AsString()
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, TypeString, mismatch.Expected)
	assert.Equal(t, TypeInteger, mismatch.Actual)

	i, err := v.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(4), i)
}

func TestEmptyMapArrayEquivalence(t *testing.T) {
	emptyMap := NewMap(Map{})
	arr, err := emptyMap.AsArray()
	require.NoError(t, err)
	assert.Empty(t, arr)

	emptyArray := NewArray(Array{})
	m, err := emptyArray.AsMap()
	require.NoError(t, err)
	assert.Zero(t, m.Len())

	// The equivalence only covers empty containers.
	_, err = NewArray(Array{NewInteger(1)}).AsMap()
	assert.Error(t, err)
}

func TestMapOrderIndependence(t *testing.T) {
	var a, b Map
	a.Set(NewString("x"), NewInteger(1))
	a.Set(NewString("y"), NewInteger(2))
	b.Set(NewString("y"), NewInteger(2))
	b.Set(NewString("x"), NewInteger(1))

	va, vb := NewMap(a), NewMap(b)
	assert.True(t, va.Equal(vb))
	assert.Equal(t, va.Hash(), vb.Hash())
}

func TestCrossTypeInequality(t *testing.T) {
	assert.False(t, NewInteger(1).Equal(NewFloat(1)))
	assert.False(t, Nil.Equal(NewBoolean(false)))
}

func TestOrdering(t *testing.T) {
	// Tag order dominates.
	assert.Negative(t, Compare(Nil, NewBoolean(false)))
	assert.Negative(t, Compare(NewBoolean(true), NewInteger(0)))
	// Then native order.
	assert.Negative(t, Compare(NewInteger(1), NewInteger(2)))
	assert.Positive(t, Compare(NewString("b"), NewString("a")))
	assert.Negative(t, Compare(
		NewArray(Array{NewInteger(1)}),
		NewArray(Array{NewInteger(1), NewInteger(0)})))
}

func TestFromAnyPairRule(t *testing.T) {
	// An array of [string, value] pairs becomes a map.
	v, err := FromAny([]any{
		[]any{"some", 1},
		[]any{"other", 2},
	})
	require.NoError(t, err)
	require.Equal(t, TypeMap, v.Type())
	m, err := v.AsMap()
	require.NoError(t, err)
	got, err := GetField(m, "some")
	require.NoError(t, err)
	assert.True(t, got.Equal(NewInteger(1)))

	// Anything else stays an array.
	v, err = FromAny([]any{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, TypeArray, v.Type())
}

func TestFromAnyRejectsUnsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.Error(t, err)
}

func TestDeepSize(t *testing.T) {
	small := NewInteger(1)
	big := NewArray(Array{NewString("hello"), NewBlob(MakeBlob(make([]byte, 100)))})
	assert.Greater(t, big.DeepSize(), small.DeepSize())
	assert.GreaterOrEqual(t, big.DeepSize(), 105)
}

func TestDatetimeMillisecondPrecision(t *testing.T) {
	when := time.Date(2024, 5, 17, 12, 30, 0, 123456789, time.UTC)
	v := NewDatetime(when)
	got, err := v.AsDatetime()
	require.NoError(t, err)
	assert.Equal(t, int64(123), int64(got.Nanosecond())/int64(time.Millisecond))
	// Sub-millisecond differences do not break equality.
	assert.True(t, v.Equal(NewDatetime(when.Add(100*time.Microsecond))))
}

func TestGetFieldErrors(t *testing.T) {
	var m Map
	m.Set(NewString("present"), NewInteger(1))
	_, err := GetField(m, "absent")
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "absent", missing.Field)
}

func TestGetUnionTag(t *testing.T) {
	var m Map
	m.Set(NewString("a"), NewInteger(1))
	tag, err := GetUnionTag(m)
	require.NoError(t, err)
	assert.True(t, tag.Equal(NewString("a")))

	m.Set(NewString("b"), NewInteger(2))
	_, err = GetUnionTag(m)
	var multi *MultifieldUnionError
	require.ErrorAs(t, err, &multi)
	assert.Equal(t, 2, multi.FieldCount)
}

func TestAddPathElement(t *testing.T) {
	err := error(&TypeMismatchError{Expected: TypeString, Actual: TypeInteger})
	err = AddPathElement(err, NewInteger(3))
	err = AddPathElement(err, NewString("items"))

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Len(t, mismatch.Path, 2)
	assert.True(t, mismatch.Path[0].Equal(NewString("items")))
	assert.True(t, mismatch.Path[1].Equal(NewInteger(3)))
	assert.Contains(t, mismatch.Error(), "/items/3")

	// Errors without a path pass through untouched.
	plain := errors.New("plain")
	assert.Equal(t, plain, AddPathElement(plain, NewString("x")))
}

func TestImmutable(t *testing.T) {
	im := MakeImmutable(NewString("hello"))
	assert.Equal(t, NewString("hello").DeepSize(), im.DeepSize())
	assert.True(t, im.Equal(MakeImmutable(NewString("hello"))))
	assert.False(t, im.Equal(MakeImmutable(NewString("world"))))
	assert.Equal(t, NewString("hello").Hash(), im.Hash())

	v, err := Cast[Value](im)
	require.NoError(t, err)
	assert.True(t, v.Equal(NewString("hello")))

	plain := MakeImmutable(42)
	n, err := Cast[int](plain)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	_, err = Cast[string](plain)
	assert.Error(t, err)
}
