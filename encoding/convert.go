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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

// convertOptions selects the format-specific decoding conventions that
// apply on top of the shared tree walk.
type convertOptions struct {
	// sniffDatetimeStrings converts strings in the canonical ISO-8601
	// form into datetimes. JSON and YAML encode datetimes as strings, so
	// their decoders need this; formats with native timestamps do not.
	sniffDatetimeStrings bool
	// detectBlobObjects converts objects tagged "base64-encoded-blob"
	// into blobs.
	detectBlobObjects bool
}

// convertTree converts a decoded external tree into a dynamic value.
func convertTree(x any, opts convertOptions) (dynamic.Value, error) {
	switch v := x.(type) {
	case json.Number:
		return convertNumber(v)
	case string:
		if opts.sniffDatetimeStrings {
			if t, ok := parseDatetimeString(v); ok {
				return dynamic.NewDatetime(t), nil
			}
		}
		return dynamic.NewString(v), nil
	case []any:
		return convertSequence(v, opts)
	case map[string]any:
		return convertObject(v, opts)
	case map[any]any:
		var m dynamic.Map
		for key, value := range v {
			ck, err := convertTree(key, opts)
			if err != nil {
				return dynamic.Nil, err
			}
			cv, err := convertTree(value, opts)
			if err != nil {
				return dynamic.Nil, dynamic.AddPathElement(err, ck)
			}
			m.Set(ck, cv)
		}
		return dynamic.NewMap(m), nil
	default:
		return dynamic.FromAny(x)
	}
}

// convertNumber keeps integral JSON numbers integral.
func convertNumber(n json.Number) (dynamic.Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return dynamic.NewInteger(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return dynamic.Nil, fmt.Errorf("bad number %q: %w", s, err)
	}
	return dynamic.NewFloat(f), nil
}

// convertSequence folds a sequence of {"key": k, "value": v} objects
// back into a map and converts anything else as an array (applying the
// string-pair brace rule from dynamic.FromAny).
func convertSequence(items []any, opts convertOptions) (dynamic.Value, error) {
	if resemblesEncodedMap(items) {
		var m dynamic.Map
		for _, item := range items {
			pair := item.(map[string]any)
			key, err := convertTree(pair["key"], opts)
			if err != nil {
				return dynamic.Nil, err
			}
			value, err := convertTree(pair["value"], opts)
			if err != nil {
				return dynamic.Nil, dynamic.AddPathElement(err, key)
			}
			m.Set(key, value)
		}
		return dynamic.NewMap(m), nil
	}
	converted := make([]dynamic.Value, len(items))
	for i, item := range items {
		cv, err := convertTree(item, opts)
		if err != nil {
			return dynamic.Nil, dynamic.AddPathElement(
				err, dynamic.NewInteger(int64(i)))
		}
		converted[i] = cv
	}
	return dynamic.FromAny(converted)
}

// resemblesEncodedMap reports whether a decoded sequence is actually an
// encoded map: non-empty, and every entry an object holding exactly the
// keys "key" and "value".
func resemblesEncodedMap(items []any) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		pair, ok := item.(map[string]any)
		if !ok || len(pair) != 2 {
			return false
		}
		if _, ok := pair["key"]; !ok {
			return false
		}
		if _, ok := pair["value"]; !ok {
			return false
		}
	}
	return true
}

// convertObject converts a decoded object, recognizing encoded blobs.
func convertObject(obj map[string]any, opts convertOptions) (dynamic.Value, error) {
	if opts.detectBlobObjects {
		if tag, ok := obj["type"].(string); ok && tag == blobTypeTag {
			encoded, ok := obj["blob"].(string)
			if !ok {
				return dynamic.Nil, &ParsingError{
					ExpectedFormat: blobTypeTag,
					ParsedText:     fmt.Sprintf("%v", obj),
					Msg:            "object tagged as blob but missing data",
				}
			}
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return dynamic.Nil, &ParsingError{
					ExpectedFormat: blobTypeTag,
					ParsedText:     encoded,
					Msg:            err.Error(),
				}
			}
			return dynamic.NewBlob(dynamic.MakeBlob(data)), nil
		}
	}
	var m dynamic.Map
	for key, value := range obj {
		cv, err := convertTree(value, opts)
		if err != nil {
			return dynamic.Nil, dynamic.AddPathElement(
				err, dynamic.NewString(key))
		}
		m.Set(dynamic.NewString(key), cv)
	}
	return dynamic.NewMap(m), nil
}
