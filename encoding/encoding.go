//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package encoding converts dynamic values to and from external
// encodings: JSON, YAML, MessagePack, and native Go trees.
//
// All encodings share the same conventions. A map whose keys are all
// strings encodes as the format's native object; any other map encodes
// as an array of {"key": k, "value": v} pairs, and decoding recognizes
// that shape and folds it back into a map. Blobs and datetimes ride on
// the format's native support where it exists (MessagePack) and on
// tagged objects / ISO-8601 strings where it does not (JSON, YAML).
package encoding

import (
	"fmt"
	"strings"
	"time"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

// blobTypeTag marks a JSON/YAML object as an encoded blob.
const blobTypeTag = "base64-encoded-blob"

// datetimeLayout is the canonical string form of a datetime in JSON and
// YAML: ISO-8601, UTC, millisecond precision.
const datetimeLayout = "2006-01-02T15:04:05.000Z"

// ParsingError reports a failure to decode external text.
type ParsingError struct {
	ExpectedFormat string
	ParsedText     string
	Msg            string
}

// Error implements error.
func (e *ParsingError) Error() string {
	text := e.ParsedText
	const maxQuoted = 120
	if len(text) > maxQuoted {
		text = text[:maxQuoted] + "..."
	}
	return fmt.Sprintf("parsing %s: %s (input: %q)",
		e.ExpectedFormat, e.Msg, text)
}

// formatDatetime renders t in the canonical string form.
func formatDatetime(t time.Time) string {
	return t.UTC().Format(datetimeLayout)
}

// parseDatetimeString reports whether s is the canonical string form of
// a datetime, and if so which instant. Only strings that reproduce
// themselves exactly when re-encoded are treated as datetimes; anything
// else stays a string.
func parseDatetimeString(s string) (time.Time, bool) {
	if len(s) != len(datetimeLayout) || !strings.HasSuffix(s, "Z") {
		return time.Time{}, false
	}
	t, err := time.Parse(datetimeLayout, s)
	if err != nil || formatDatetime(t) != s {
		return time.Time{}, false
	}
	return t, true
}

// hasOnlyStringKeys reports whether every key in m is a string.
func hasOnlyStringKeys(m dynamic.Map) bool {
	for _, e := range m.Entries() {
		if e.Key.Type() != dynamic.TypeString {
			return false
		}
	}
	return true
}
