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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

// EncodeJSON renders a dynamic value as JSON text.
//
// Floats always carry a decimal point or exponent so that they decode
// back as floats; datetimes are ISO-8601 strings; blobs are objects
// tagged "base64-encoded-blob"; maps with non-string keys are arrays of
// {"key", "value"} objects.
func EncodeJSON(v dynamic.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v dynamic.Value) error {
	var err error
	dynamic.Apply(func(payload any) {
		switch x := payload.(type) {
		case nil:
			buf.WriteString("null")
		case bool:
			buf.WriteString(strconv.FormatBool(x))
		case int64:
			buf.WriteString(strconv.FormatInt(x, 10))
		case float64:
			err = writeJSONFloat(buf, x)
		case string:
			err = writeJSONString(buf, x)
		case dynamic.Blob:
			buf.WriteString(`{"type":"` + blobTypeTag + `","blob":"`)
			buf.WriteString(base64.StdEncoding.EncodeToString(x.Bytes()))
			buf.WriteString(`"}`)
		case time.Time:
			err = writeJSONString(buf, formatDatetime(x))
		case dynamic.Array:
			buf.WriteByte('[')
			for i, item := range x {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err = writeJSON(buf, item); err != nil {
					return
				}
			}
			buf.WriteByte(']')
		case dynamic.Map:
			err = writeJSONMap(buf, x)
		}
	}, v)
	return err
}

func writeJSONFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("cannot encode %v as JSON", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Keep the float/integer distinction through a round trip.
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	buf.WriteString(s)
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

func writeJSONMap(buf *bytes.Buffer, m dynamic.Map) error {
	if hasOnlyStringKeys(m) {
		buf.WriteByte('{')
		for i, e := range m.Entries() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := e.Key.AsString()
			if err := writeJSONString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, e.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	}
	// Encode as an array of key/value pairs.
	buf.WriteByte('[')
	for i, e := range m.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"key":`)
		if err := writeJSON(buf, e.Key); err != nil {
			return err
		}
		buf.WriteString(`,"value":`)
		if err := writeJSON(buf, e.Value); err != nil {
			return err
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return nil
}

// DecodeJSON parses JSON text into a dynamic value.
func DecodeJSON(data []byte) (dynamic.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return dynamic.Nil, &ParsingError{
			ExpectedFormat: "JSON",
			ParsedText:     string(data),
			Msg:            err.Error(),
		}
	}
	if dec.More() {
		return dynamic.Nil, &ParsingError{
			ExpectedFormat: "JSON",
			ParsedText:     string(data),
			Msg:            "trailing content after JSON document",
		}
	}
	return convertTree(tree, convertOptions{
		sniffDatetimeStrings: true,
		detectBlobObjects:    true,
	})
}
