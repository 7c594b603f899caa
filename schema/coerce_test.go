//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package schema

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

var noResolver = ResolverFunc(func(ref NamedRef) (TypeInfo, error) {
	return TypeInfo{}, fmt.Errorf("unknown type %s", ref)
})

func mustCoerce(t *testing.T, ti TypeInfo, v dynamic.Value) dynamic.Value {
	t.Helper()
	coerced, err := Coerce(noResolver, ti, v)
	require.NoError(t, err)
	return coerced
}

func TestNumericCoercion(t *testing.T) {
	// integer -> float always widens.
	got := mustCoerce(t, Float(), dynamic.NewInteger(4))
	assert.True(t, got.Equal(dynamic.NewFloat(4)))

	// float -> integer only when exact.
	got = mustCoerce(t, Integer(), dynamic.NewFloat(4))
	assert.True(t, got.Equal(dynamic.NewInteger(4)))
	_, err := Coerce(noResolver, Integer(), dynamic.NewFloat(4.5))
	assert.Error(t, err)
}

func TestDatetimeFromString(t *testing.T) {
	got := mustCoerce(t, Datetime(), dynamic.NewString("2024-05-17T12:30:00Z"))
	when, err := got.AsDatetime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 17, 12, 30, 0, 0, time.UTC), when)

	_, err = Coerce(noResolver, Datetime(), dynamic.NewString("yesterday"))
	var mismatch *dynamic.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, dynamic.TypeDatetime, mismatch.Expected)
}

func TestEmptyArrayAsMap(t *testing.T) {
	got := mustCoerce(t, MapOf(String(), Integer()),
		dynamic.NewArray(dynamic.Array{}))
	m, err := got.AsMap()
	require.NoError(t, err)
	assert.Zero(t, m.Len())
}

func TestOptionalCoercion(t *testing.T) {
	some := dynamic.MustFromAny(map[string]any{"some": 4.0})
	got := mustCoerce(t, Optional(Integer()), some)
	m, err := got.AsMap()
	require.NoError(t, err)
	inner, err := dynamic.GetField(m, "some")
	require.NoError(t, err)
	assert.True(t, inner.Equal(dynamic.NewInteger(4)))

	none := dynamic.MustFromAny(map[string]any{"none": nil})
	got = mustCoerce(t, Optional(Integer()), none)
	assert.True(t, got.Equal(none))

	bad := dynamic.MustFromAny(map[string]any{"maybe": 4})
	_, err = Coerce(noResolver, Optional(Integer()), bad)
	var tagErr *InvalidOptionalTagError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "maybe", tagErr.Tag)
}

func TestStructureCoercion(t *testing.T) {
	person := Structure(
		Field{Name: "name", Schema: String()},
		Field{Name: "age", Schema: Integer()},
		Field{Name: "nickname", Omissible: true, Schema: String()},
	)

	ok := dynamic.MustFromAny(map[string]any{
		"name": "ada", "age": 36.0, "extra": true})
	got := mustCoerce(t, person, ok)
	m, err := got.AsMap()
	require.NoError(t, err)
	age, err := dynamic.GetField(m, "age")
	require.NoError(t, err)
	assert.True(t, age.Equal(dynamic.NewInteger(36)))
	// Extras are dropped, omissible fields may be absent.
	_, present := dynamic.HasField(m, "extra")
	assert.False(t, present)

	missing := dynamic.MustFromAny(map[string]any{"name": "ada"})
	_, err = Coerce(noResolver, person, missing)
	var missingErr *dynamic.MissingFieldError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "age", missingErr.Field)
}

func TestUnionCoercion(t *testing.T) {
	shape := Union(
		Member{Name: "circle", Schema: Float()},
		Member{Name: "square", Schema: Float()},
	)

	got := mustCoerce(t, shape, dynamic.MustFromAny(map[string]any{"circle": 2}))
	m, err := got.AsMap()
	require.NoError(t, err)
	r, err := dynamic.GetField(m, "circle")
	require.NoError(t, err)
	assert.True(t, r.Equal(dynamic.NewFloat(2)))

	_, err = Coerce(noResolver, shape,
		dynamic.MustFromAny(map[string]any{"triangle": 2}))
	var enumErr *InvalidEnumStringError
	require.ErrorAs(t, err, &enumErr)
	assert.Equal(t, "triangle", enumErr.Value)

	_, err = Coerce(noResolver, shape,
		dynamic.MustFromAny(map[string]any{"circle": 1, "square": 2}))
	var multiErr *dynamic.MultifieldUnionError
	require.ErrorAs(t, err, &multiErr)
}

func TestEnumCoercion(t *testing.T) {
	color := Enum(EnumValue{Name: "red"}, EnumValue{Name: "blue"})
	got := mustCoerce(t, color, dynamic.NewString("red"))
	assert.True(t, got.Equal(dynamic.NewString("red")))

	_, err := Coerce(noResolver, color, dynamic.NewString("green"))
	var enumErr *InvalidEnumStringError
	require.ErrorAs(t, err, &enumErr)
}

func TestNamedResolution(t *testing.T) {
	resolver := ResolverFunc(func(ref NamedRef) (TypeInfo, error) {
		if ref.App == "core" && ref.Name == "count" {
			return Integer(), nil
		}
		return TypeInfo{}, fmt.Errorf("unknown type %s", ref)
	})
	got, err := Coerce(resolver, Named(NamedRef{App: "core", Name: "count"}),
		dynamic.NewFloat(3))
	require.NoError(t, err)
	assert.True(t, got.Equal(dynamic.NewInteger(3)))

	_, err = Coerce(resolver, Named(NamedRef{App: "core", Name: "missing"}),
		dynamic.NewFloat(3))
	assert.Error(t, err)
}

func TestCoercionFailurePath(t *testing.T) {
	ti := Structure(Field{
		Name:   "items",
		Schema: ArrayOf(Integer()),
	})
	v := dynamic.MustFromAny(map[string]any{
		"items": []any{1, "two", 3},
	})
	_, err := Coerce(noResolver, ti, v)
	var mismatch *dynamic.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Len(t, mismatch.Path, 2)
	assert.True(t, mismatch.Path[0].Equal(dynamic.NewString("items")))
	assert.True(t, mismatch.Path[1].Equal(dynamic.NewInteger(1)))
}

func TestCoercionIdempotent(t *testing.T) {
	cases := []struct {
		ti TypeInfo
		v  dynamic.Value
	}{
		{Float(), dynamic.NewInteger(4)},
		{Integer(), dynamic.NewFloat(4)},
		{Datetime(), dynamic.NewString("2024-05-17T12:30:00Z")},
		{Optional(Float()), dynamic.MustFromAny(map[string]any{"some": 1})},
		{MapOf(String(), Float()), dynamic.MustFromAny(map[string]any{"k": 2})},
		{Structure(Field{Name: "a", Schema: Float()}),
			dynamic.MustFromAny(map[string]any{"a": 1, "junk": true})},
	}
	for i, c := range cases {
		once, err := Coerce(noResolver, c.ti, c.v)
		require.NoError(t, err, "case %d", i)
		twice, err := Coerce(noResolver, c.ti, once)
		require.NoError(t, err, "case %d", i)
		assert.True(t, once.Equal(twice), "case %d", i)
	}
}
