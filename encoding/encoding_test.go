//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package encoding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

// corpus covers every value type, including the awkward cases: floats
// with integral values, maps with non-string keys, empty containers and
// nested mixtures.
func corpus() []dynamic.Value {
	var intKeyed dynamic.Map
	intKeyed.Set(dynamic.NewInteger(1), dynamic.NewString("one"))
	intKeyed.Set(dynamic.NewInteger(2), dynamic.NewString("two"))

	var stringKeyed dynamic.Map
	stringKeyed.Set(dynamic.NewString("a"), dynamic.NewInteger(1))
	stringKeyed.Set(dynamic.NewString("b"), dynamic.NewArray(dynamic.Array{
		dynamic.NewFloat(0.5), dynamic.Nil,
	}))

	return []dynamic.Value{
		dynamic.Nil,
		dynamic.NewBoolean(true),
		dynamic.NewBoolean(false),
		dynamic.NewInteger(0),
		dynamic.NewInteger(-17),
		dynamic.NewInteger(1 << 40),
		dynamic.NewFloat(2.5),
		dynamic.NewFloat(4), // integral float must stay a float
		dynamic.NewString(""),
		dynamic.NewString("hello"),
		dynamic.NewBlob(dynamic.MakeBlob([]byte{0, 1, 2, 255})),
		dynamic.NewDatetime(time.Date(2024, 5, 17, 12, 30, 0, 0, time.UTC)),
		dynamic.NewArray(dynamic.Array{}),
		dynamic.NewArray(dynamic.Array{
			dynamic.NewInteger(1), dynamic.NewString("two"),
		}),
		dynamic.NewMap(dynamic.Map{}),
		dynamic.NewMap(stringKeyed),
		dynamic.NewMap(intKeyed),
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for i, v := range corpus() {
		encoded, err := EncodeJSON(v)
		require.NoError(t, err, "case %d (%s)", i, v)
		decoded, err := DecodeJSON(encoded)
		require.NoError(t, err, "case %d (%s)", i, v)
		assertRoundTrip(t, v, decoded, i)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	for i, v := range corpus() {
		encoded, err := EncodeYAML(v)
		require.NoError(t, err, "case %d (%s)", i, v)
		decoded, err := DecodeYAML(encoded)
		require.NoError(t, err, "case %d (%s)", i, v)
		assertRoundTrip(t, v, decoded, i)
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	for i, v := range corpus() {
		encoded, err := EncodeMsgpack(v)
		require.NoError(t, err, "case %d (%s)", i, v)
		decoded, err := DecodeMsgpack(encoded)
		require.NoError(t, err, "case %d (%s)", i, v)
		assertRoundTrip(t, v, decoded, i)
	}
}

func TestNativeRoundTrip(t *testing.T) {
	for i, v := range corpus() {
		decoded, err := FromNative(ToNative(v))
		require.NoError(t, err, "case %d (%s)", i, v)
		assertRoundTrip(t, v, decoded, i)
	}
}

// assertRoundTrip allows the one legal wobble: an empty map may come
// back as an empty array and vice versa, since external encodings
// conflate the two.
func assertRoundTrip(t *testing.T, want, got dynamic.Value, i int) {
	t.Helper()
	if want.Type() == dynamic.TypeMap || want.Type() == dynamic.TypeArray {
		wantArr, werr := want.AsArray()
		gotArr, gerr := got.AsArray()
		if werr == nil && gerr == nil && len(wantArr) == 0 && len(gotArr) == 0 {
			return
		}
	}
	assert.True(t, want.Equal(got), "case %d: %s != %s", i, want, got)
}

func TestJSONFloatStaysFloat(t *testing.T) {
	encoded, err := EncodeJSON(dynamic.NewFloat(4))
	require.NoError(t, err)
	assert.Equal(t, "4.0", string(encoded))

	decoded, err := DecodeJSON(encoded)
	require.NoError(t, err)
	assert.Equal(t, dynamic.TypeFloat, decoded.Type())

	decoded, err = DecodeJSON([]byte("4"))
	require.NoError(t, err)
	assert.Equal(t, dynamic.TypeInteger, decoded.Type())
}

func TestJSONDatetimeSniffing(t *testing.T) {
	decoded, err := DecodeJSON([]byte(`"2024-05-17T12:30:00.000Z"`))
	require.NoError(t, err)
	assert.Equal(t, dynamic.TypeDatetime, decoded.Type())

	// Strings that do not round-trip exactly stay strings.
	decoded, err = DecodeJSON([]byte(`"2024-05-17"`))
	require.NoError(t, err)
	assert.Equal(t, dynamic.TypeString, decoded.Type())
}

func TestJSONBlobObject(t *testing.T) {
	decoded, err := DecodeJSON([]byte(
		`{"type":"base64-encoded-blob","blob":"aGVsbG8="}`))
	require.NoError(t, err)
	blob, err := decoded.AsBlob()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), blob.Bytes())

	// A tagged object without blob data is a parsing error.
	_, err = DecodeJSON([]byte(`{"type":"base64-encoded-blob"}`))
	var parseErr *ParsingError
	require.ErrorAs(t, err, &parseErr)
}

func TestJSONEncodedMapShape(t *testing.T) {
	var m dynamic.Map
	m.Set(dynamic.NewInteger(1), dynamic.NewString("one"))
	encoded, err := EncodeJSON(dynamic.NewMap(m))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"key":1,"value":"one"}]`, string(encoded))
}

func TestDecodeJSONMalformed(t *testing.T) {
	for _, input := range []string{"", "{", `{"a":}`, "1 2"} {
		_, err := DecodeJSON([]byte(input))
		var parseErr *ParsingError
		require.ErrorAs(t, err, &parseErr, "input %q", input)
		assert.Equal(t, "JSON", parseErr.ExpectedFormat)
	}
}

func TestDecodeMsgpackMalformed(t *testing.T) {
	_, err := DecodeMsgpack([]byte{0xc1}) // 0xc1 is never used in msgpack
	var parseErr *ParsingError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "MessagePack", parseErr.ExpectedFormat)
}
