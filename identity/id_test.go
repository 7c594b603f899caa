//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveIDs(t *testing.T) {
	assert.True(t, Make("abc").Equal(Make("abc")))
	assert.False(t, Make("abc").Equal(Make("abd")))
	assert.True(t, Make(4).Equal(Make(int64(4))))
	assert.False(t, Make(4).Equal(Make(5)))
	// Different primitive kinds never compare equal.
	assert.False(t, Make("4").Equal(Make(4)))
}

func TestStructuralIdentity(t *testing.T) {
	a, b := Make("fn"), Make(4)

	left := Combine(a, b)
	right := Combine(Make("fn"), Make(4))
	require.True(t, left.Equal(right))
	assert.Equal(t, left.Hash(), right.Hash())
	assert.Equal(t, left.String(), right.String())

	// Composition is ordered.
	swapped := Combine(b, a)
	assert.False(t, left.Equal(swapped))
	assert.NotEqual(t, left.String(), swapped.String())
}

func TestNestedComposition(t *testing.T) {
	inner := Combine(Make("f"), Make(1))
	outer := Combine(inner, Make(2))
	same := Combine(Combine(Make("f"), Make(1)), Make(2))
	assert.True(t, outer.Equal(same))
	assert.Equal(t, outer.Hash(), same.Hash())

	flat := Combine(Make("f"), Make(1), Make(2))
	assert.False(t, outer.Equal(flat))
}

func TestCanonicalStringDistinguishes(t *testing.T) {
	// The quoted string form keeps string and integer keys apart.
	assert.NotEqual(t, Make("4").String(), Make(4).String())
	assert.NotEqual(t,
		Combine(Make("a"), Make("b")).String(),
		Combine(Make("a,b")).String())
}

func TestFunctionIDs(t *testing.T) {
	f := func() {}
	g := func() {}
	assert.True(t, Make(f).Equal(Make(f)))
	assert.False(t, Make(f).Equal(Make(g)))
}

func TestCaptured(t *testing.T) {
	id := Combine(Make("k"), Make(1))
	captured := Capture(id)
	assert.True(t, captured.Matches(Combine(Make("k"), Make(1))))
	assert.False(t, captured.Matches(Make("k")))
	assert.False(t, Captured{}.Matches(id))
}
