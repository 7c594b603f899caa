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
	"bytes"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

// EncodeMsgpack renders a dynamic value as MessagePack bytes. Unlike the
// text encodings, MessagePack carries blobs (bin format) and datetimes
// (timestamp extension) natively, and maps may have keys of any type, so
// no tagging conventions are needed.
func EncodeMsgpack(v dynamic.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeMsgpackValue(enc, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeMsgpackValue(enc *msgpack.Encoder, v dynamic.Value) error {
	var err error
	dynamic.Apply(func(payload any) {
		switch x := payload.(type) {
		case nil:
			err = enc.EncodeNil()
		case bool:
			err = enc.EncodeBool(x)
		case int64:
			err = enc.EncodeInt(x)
		case float64:
			err = enc.EncodeFloat64(x)
		case string:
			err = enc.EncodeString(x)
		case dynamic.Blob:
			err = enc.EncodeBytes(x.Bytes())
		case time.Time:
			err = enc.EncodeTime(x)
		case dynamic.Array:
			if err = enc.EncodeArrayLen(len(x)); err != nil {
				return
			}
			for _, item := range x {
				if err = encodeMsgpackValue(enc, item); err != nil {
					return
				}
			}
		case dynamic.Map:
			if err = enc.EncodeMapLen(x.Len()); err != nil {
				return
			}
			for _, e := range x.Entries() {
				if err = encodeMsgpackValue(enc, e.Key); err != nil {
					return
				}
				if err = encodeMsgpackValue(enc, e.Value); err != nil {
					return
				}
			}
		}
	}, v)
	return err
}

// DecodeMsgpack parses MessagePack bytes into a dynamic value.
func DecodeMsgpack(data []byte) (dynamic.Value, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	// Preserve non-string map keys instead of stringifying them.
	dec.SetMapDecoder(func(d *msgpack.Decoder) (any, error) {
		return d.DecodeUntypedMap()
	})
	tree, err := dec.DecodeInterface()
	if err != nil {
		return dynamic.Nil, &ParsingError{
			ExpectedFormat: "MessagePack",
			ParsedText:     string(data),
			Msg:            err.Error(),
		}
	}
	v, err := convertTree(normalizeMsgpack(tree), convertOptions{})
	if err != nil {
		return dynamic.Nil, err
	}
	return v, nil
}

// normalizeMsgpack rewrites the msgpack tree into the shared
// decoded-tree shape: unsigned and shorter integer kinds widen to int64,
// float32 widens to float64.
func normalizeMsgpack(x any) any {
	switch v := x.(type) {
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case uint:
		return int64(v)
	case int:
		return int64(v)
	case float32:
		return float64(v)
	case []any:
		for i, item := range v {
			v[i] = normalizeMsgpack(item)
		}
		return v
	case map[string]any:
		for key, value := range v {
			v[key] = normalizeMsgpack(value)
		}
		return v
	case map[any]any:
		converted := make(map[any]any, len(v))
		for key, value := range v {
			converted[normalizeMsgpack(key)] = normalizeMsgpack(value)
		}
		return converted
	default:
		return v
	}
}
