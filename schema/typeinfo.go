//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package schema implements the recursive type-info language that
// describes the allowed shape of a dynamic value, and the coercion of
// loosely-typed external values into that shape.
package schema

import (
	"fmt"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

// Kind discriminates TypeInfo variants.
type Kind int

// TypeInfo kinds.
const (
	KindNil Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindString
	KindDatetime
	KindBlob
	KindDynamic
	KindArray
	KindMap
	KindOptional
	KindReference
	KindEnum
	KindStructure
	KindUnion
	KindNamed
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	names := map[Kind]string{
		KindNil:       "nil",
		KindBoolean:   "boolean",
		KindInteger:   "integer",
		KindFloat:     "float",
		KindString:    "string",
		KindDatetime:  "datetime",
		KindBlob:      "blob",
		KindDynamic:   "dynamic",
		KindArray:     "array",
		KindMap:       "map",
		KindOptional:  "optional",
		KindReference: "reference",
		KindEnum:      "enum",
		KindStructure: "structure",
		KindUnion:     "union",
		KindNamed:     "named",
	}
	if name, ok := names[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field describes one structure field.
type Field struct {
	Name      string
	Doc       string
	Omissible bool
	Schema    TypeInfo
}

// Member describes one union member.
type Member struct {
	Name   string
	Doc    string
	Schema TypeInfo
}

// EnumValue describes one declared enum string.
type EnumValue struct {
	Name string
	Doc  string
}

// NamedRef refers to a type registered elsewhere, identified by an
// optional account, an app, and a type name. A Resolver turns the
// reference into its definition.
type NamedRef struct {
	Account string // empty means the context's own account
	App     string
	Name    string
}

// String implements fmt.Stringer.
func (r NamedRef) String() string {
	if r.Account == "" {
		return r.App + "/" + r.Name
	}
	return r.Account + "/" + r.App + "/" + r.Name
}

// Resolver resolves named type references to their definitions.
type Resolver interface {
	ResolveNamedType(ref NamedRef) (TypeInfo, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ref NamedRef) (TypeInfo, error)

// ResolveNamedType implements Resolver.
func (f ResolverFunc) ResolveNamedType(ref NamedRef) (TypeInfo, error) {
	return f(ref)
}

// TypeInfo is a recursive structural description of the allowed shape of
// a dynamic value. Construct instances with the package-level builders.
type TypeInfo struct {
	kind     Kind
	elem     *TypeInfo // array element, optional inner, reference target
	key      *TypeInfo // map key
	value    *TypeInfo // map value
	enum     []EnumValue
	fields   []Field
	members  []Member
	namedRef NamedRef
}

// Kind returns the variant tag.
func (t TypeInfo) Kind() Kind { return t.kind }

// NilType describes the nil value.
func NilType() TypeInfo { return TypeInfo{kind: KindNil} }

// Boolean describes a boolean.
func Boolean() TypeInfo { return TypeInfo{kind: KindBoolean} }

// Integer describes a 64-bit signed integer.
func Integer() TypeInfo { return TypeInfo{kind: KindInteger} }

// Float describes an IEEE-754 binary64.
func Float() TypeInfo { return TypeInfo{kind: KindFloat} }

// String describes a UTF-8 string.
func String() TypeInfo { return TypeInfo{kind: KindString} }

// Datetime describes a UTC instant.
func Datetime() TypeInfo { return TypeInfo{kind: KindDatetime} }

// Blob describes a binary blob.
func Blob() TypeInfo { return TypeInfo{kind: KindBlob} }

// Dynamic accepts any value.
func Dynamic() TypeInfo { return TypeInfo{kind: KindDynamic} }

// ArrayOf describes an array with the given element type.
func ArrayOf(elem TypeInfo) TypeInfo {
	return TypeInfo{kind: KindArray, elem: &elem}
}

// MapOf describes a map with the given key and value types.
func MapOf(key, value TypeInfo) TypeInfo {
	return TypeInfo{kind: KindMap, key: &key, value: &value}
}

// Optional describes an optional of the given inner type, encoded as
// {"some": v} or {"none": nil}.
func Optional(inner TypeInfo) TypeInfo {
	return TypeInfo{kind: KindOptional, elem: &inner}
}

// Reference describes a content-addressed reference to a value of the
// target type, encoded as the referenced ID string.
func Reference(target TypeInfo) TypeInfo {
	return TypeInfo{kind: KindReference, elem: &target}
}

// Enum describes a closed set of strings.
func Enum(values ...EnumValue) TypeInfo {
	return TypeInfo{kind: KindEnum, enum: values}
}

// Structure describes a map with declared string fields.
func Structure(fields ...Field) TypeInfo {
	return TypeInfo{kind: KindStructure, fields: fields}
}

// Union describes a single-entry map whose key selects the member.
func Union(members ...Member) TypeInfo {
	return TypeInfo{kind: KindUnion, members: members}
}

// Named describes a reference to a registered type.
func Named(ref NamedRef) TypeInfo {
	return TypeInfo{kind: KindNamed, namedRef: ref}
}

// NamedRefOf returns the reference of a KindNamed TypeInfo.
func (t TypeInfo) NamedRefOf() NamedRef { return t.namedRef }

// InvalidEnumStringError reports a string that is not a declared enum
// value (or a union tag naming no declared member).
type InvalidEnumStringError struct {
	Value string
	Path  dynamic.Path
}

// Error implements error.
func (e *InvalidEnumStringError) Error() string {
	return fmt.Sprintf("invalid enum string %q at %s", e.Value, e.Path)
}

// PrependPathElement implements dynamic.PathHolder.
func (e *InvalidEnumStringError) PrependPathElement(elem dynamic.Value) {
	e.Path = append(dynamic.Path{elem}, e.Path...)
}

// InvalidOptionalTagError reports an optional encoded with a tag other
// than "some" or "none".
type InvalidOptionalTagError struct {
	Tag  string
	Path dynamic.Path
}

// Error implements error.
func (e *InvalidOptionalTagError) Error() string {
	return fmt.Sprintf("invalid optional tag %q at %s", e.Tag, e.Path)
}

// PrependPathElement implements dynamic.PathHolder.
func (e *InvalidOptionalTagError) PrependPathElement(elem dynamic.Value) {
	e.Path = append(dynamic.Path{elem}, e.Path...)
}
