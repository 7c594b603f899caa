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
	"fmt"
	"strings"
)

// Path lists the field names and array indices leading from the root of a
// dynamic value to a particular node. Errors raised while processing a
// value carry the path to the offending location.
type Path []Value

// String renders the path as /a/0/b.
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, elem := range p {
		sb.WriteByte('/')
		sb.WriteString(elem.String())
	}
	return sb.String()
}

// PathHolder is implemented by errors that carry a Path.
type PathHolder interface {
	// PrependPathElement records that the error occurred one level deeper
	// than previously known.
	PrependPathElement(elem Value)
}

// AddPathElement prepends elem to the path carried by err, if err (or any
// error it wraps) carries one. It returns err either way, so call sites
// can re-raise in one line while unwinding.
func AddPathElement(err error, elem Value) error {
	var holder PathHolder
	if errors.As(err, &holder) {
		holder.PrependPathElement(elem)
	}
	return err
}

func prepend(path *Path, elem Value) {
	*path = append(Path{elem}, *path...)
}

// TypeMismatchError reports that a dynamic value was consulted at the
// wrong type.
type TypeMismatchError struct {
	Expected Type
	Actual   Type
	Path     Path
}

// Error implements error.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch at %s: expected %s, got %s",
		e.Path, e.Expected, e.Actual)
}

// PrependPathElement implements PathHolder.
func (e *TypeMismatchError) PrependPathElement(elem Value) {
	prepend(&e.Path, elem)
}

// MissingFieldError reports that a required field was absent from a map.
type MissingFieldError struct {
	Field string
	Path  Path
}

// Error implements error.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q at %s", e.Field, e.Path)
}

// PrependPathElement implements PathHolder.
func (e *MissingFieldError) PrependPathElement(elem Value) {
	prepend(&e.Path, elem)
}

// MultifieldUnionError reports that a map meant to represent a union
// value did not contain exactly one field.
type MultifieldUnionError struct {
	FieldCount int
	Path       Path
}

// Error implements error.
func (e *MultifieldUnionError) Error() string {
	return fmt.Sprintf("union value at %s has %d fields, want 1",
		e.Path, e.FieldCount)
}

// PrependPathElement implements PathHolder.
func (e *MultifieldUnionError) PrependPathElement(elem Value) {
	prepend(&e.Path, elem)
}
