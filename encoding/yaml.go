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
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

// EncodeYAML renders a dynamic value as YAML text, using the same
// conventions as the JSON encoding (tagged blob objects, ISO-8601
// datetime strings, pair-object maps for non-string keys).
func EncodeYAML(v dynamic.Value) ([]byte, error) {
	tree, err := toYAMLTree(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

func toYAMLTree(v dynamic.Value) (any, error) {
	var result any
	var err error
	dynamic.Apply(func(payload any) {
		switch x := payload.(type) {
		case dynamic.Blob:
			result = map[string]any{
				"type": blobTypeTag,
				"blob": base64.StdEncoding.EncodeToString(x.Bytes()),
			}
		case time.Time:
			result = formatDatetime(x)
		case float64:
			result = yamlFloatNode(x)
		case dynamic.Array:
			items := make([]any, len(x))
			for i, item := range x {
				if items[i], err = toYAMLTree(item); err != nil {
					return
				}
			}
			result = items
		case dynamic.Map:
			result, err = yamlMapTree(x)
		default:
			result = payload
		}
	}, v)
	return result, err
}

// yamlFloatNode emits a float scalar that decodes back as a float even
// when the value is integral; the default encoder would emit "4", which
// reads back as an integer.
func yamlFloatNode(f float64) *yaml.Node {
	var value string
	switch {
	case math.IsNaN(f):
		value = ".nan"
	case math.IsInf(f, 1):
		value = ".inf"
	case math.IsInf(f, -1):
		value = "-.inf"
	default:
		value = strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(value, ".eE") {
			value += ".0"
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

func yamlMapTree(m dynamic.Map) (any, error) {
	if hasOnlyStringKeys(m) {
		tree := make(map[string]any, m.Len())
		for _, e := range m.Entries() {
			key, _ := e.Key.AsString()
			converted, err := toYAMLTree(e.Value)
			if err != nil {
				return nil, err
			}
			tree[key] = converted
		}
		return tree, nil
	}
	pairs := make([]any, 0, m.Len())
	for _, e := range m.Entries() {
		key, err := toYAMLTree(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := toYAMLTree(e.Value)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, map[string]any{"key": key, "value": value})
	}
	return pairs, nil
}

// DecodeYAML parses YAML text into a dynamic value.
func DecodeYAML(data []byte) (dynamic.Value, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return dynamic.Nil, &ParsingError{
			ExpectedFormat: "YAML",
			ParsedText:     string(data),
			Msg:            err.Error(),
		}
	}
	return convertTree(normalizeYAML(tree), convertOptions{
		sniffDatetimeStrings: true,
		detectBlobObjects:    true,
	})
}

// normalizeYAML rewrites the yaml.v3 tree into the shared decoded-tree
// shape: ints become int64 and map[any]any maps with string keys become
// map[string]any so the blob/pair detection applies.
func normalizeYAML(x any) any {
	switch v := x.(type) {
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return float64(v)
	case []any:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}
		return v
	case map[string]any:
		for key, value := range v {
			v[key] = normalizeYAML(value)
		}
		return v
	case map[any]any:
		allStrings := true
		for key := range v {
			if _, ok := key.(string); !ok {
				allStrings = false
				break
			}
		}
		if !allStrings {
			converted := make(map[any]any, len(v))
			for key, value := range v {
				converted[normalizeYAML(key)] = normalizeYAML(value)
			}
			return converted
		}
		converted := make(map[string]any, len(v))
		for key, value := range v {
			converted[key.(string)] = normalizeYAML(value)
		}
		return converted
	default:
		return v
	}
}
