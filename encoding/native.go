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
	"trpc.group/trpc-go/cradle-go/dynamic"
)

// ToNative converts a dynamic value into a plain Go tree: nil, bool,
// int64, float64, string, []byte, time.Time, []any and map[string]any.
// Maps with non-string keys become []any of {"key": k, "value": v}
// entries, which FromNative folds back.
func ToNative(v dynamic.Value) any {
	var result any
	dynamic.Apply(func(payload any) {
		switch x := payload.(type) {
		case dynamic.Blob:
			result = x.Bytes()
		case dynamic.Array:
			items := make([]any, len(x))
			for i, item := range x {
				items[i] = ToNative(item)
			}
			result = items
		case dynamic.Map:
			if hasOnlyStringKeys(x) {
				m := make(map[string]any, x.Len())
				for _, e := range x.Entries() {
					key, _ := e.Key.AsString()
					m[key] = ToNative(e.Value)
				}
				result = m
				return
			}
			pairs := make([]any, 0, x.Len())
			for _, e := range x.Entries() {
				pairs = append(pairs, map[string]any{
					"key":   ToNative(e.Key),
					"value": ToNative(e.Value),
				})
			}
			result = pairs
		default:
			result = payload
		}
	}, v)
	return result
}

// FromNative converts a plain Go tree into a dynamic value. It accepts
// everything dynamic.FromAny accepts plus the pair-object encoding of
// maps that ToNative emits.
func FromNative(x any) (dynamic.Value, error) {
	return convertTree(x, convertOptions{})
}
