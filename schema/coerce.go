//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package schema

import (
	"fmt"
	"time"

	"trpc.group/trpc-go/cradle-go/dynamic"
)

// Coerce produces a value conforming to t from v. When v already
// conforms, the result is v itself; otherwise the shape is adjusted per
// the coercion rules: integers widen to floats (and floats narrow to
// integers when exact), ISO-8601 strings parse to datetimes, empty
// arrays stand in for empty maps, and named references resolve through
// resolver. Failures carry the path from the root of v to the offending
// node.
//
// Coercion is idempotent: Coerce(t, Coerce(t, v)) == Coerce(t, v)
// whenever the inner call succeeds.
func Coerce(resolver Resolver, t TypeInfo, v dynamic.Value) (dynamic.Value, error) {
	switch t.kind {
	case KindNil:
		if v.Type() != dynamic.TypeNil {
			return dynamic.Nil, &dynamic.TypeMismatchError{
				Expected: dynamic.TypeNil, Actual: v.Type()}
		}
		return v, nil

	case KindBoolean:
		if _, err := v.AsBoolean(); err != nil {
			return dynamic.Nil, err
		}
		return v, nil

	case KindInteger:
		if f, err := v.AsFloat(); err == nil {
			i := int64(f)
			// Narrowing must preserve the numeric value exactly.
			if float64(i) == f {
				return dynamic.NewInteger(i), nil
			}
		}
		if _, err := v.AsInteger(); err != nil {
			return dynamic.Nil, err
		}
		return v, nil

	case KindFloat:
		if i, err := v.AsInteger(); err == nil {
			return dynamic.NewFloat(float64(i)), nil
		}
		if _, err := v.AsFloat(); err != nil {
			return dynamic.Nil, err
		}
		return v, nil

	case KindString, KindReference:
		if _, err := v.AsString(); err != nil {
			return dynamic.Nil, err
		}
		return v, nil

	case KindDatetime:
		// Be forgiving of clients that leave their datetimes as strings.
		if s, err := v.AsString(); err == nil {
			if parsed, perr := time.Parse(time.RFC3339Nano, s); perr == nil {
				return dynamic.NewDatetime(parsed), nil
			}
		}
		if _, err := v.AsDatetime(); err != nil {
			return dynamic.Nil, err
		}
		return v, nil

	case KindBlob:
		if _, err := v.AsBlob(); err != nil {
			return dynamic.Nil, err
		}
		return v, nil

	case KindDynamic:
		return v, nil

	case KindArray:
		return coerceArray(resolver, t, v)

	case KindMap:
		return coerceMap(resolver, t, v)

	case KindOptional:
		return coerceOptional(resolver, t, v)

	case KindEnum:
		s, err := v.AsString()
		if err != nil {
			return dynamic.Nil, err
		}
		for _, declared := range t.enum {
			if declared.Name == s {
				return v, nil
			}
		}
		return dynamic.Nil, &InvalidEnumStringError{Value: s}

	case KindStructure:
		return coerceStructure(resolver, t, v)

	case KindUnion:
		return coerceUnion(resolver, t, v)

	case KindNamed:
		resolved, err := resolver.ResolveNamedType(t.namedRef)
		if err != nil {
			return dynamic.Nil, fmt.Errorf(
				"resolving named type %s: %w", t.namedRef, err)
		}
		return Coerce(resolver, resolved, v)

	default:
		return dynamic.Nil, fmt.Errorf("unhandled type kind %s", t.kind)
	}
}

func coerceArray(resolver Resolver, t TypeInfo, v dynamic.Value) (dynamic.Value, error) {
	items, err := v.AsArray()
	if err != nil {
		return dynamic.Nil, err
	}
	coerced := make(dynamic.Array, len(items))
	for i, item := range items {
		c, err := Coerce(resolver, *t.elem, item)
		if err != nil {
			return dynamic.Nil, dynamic.AddPathElement(
				err, dynamic.NewInteger(int64(i)))
		}
		coerced[i] = c
	}
	return dynamic.NewArray(coerced), nil
}

func coerceMap(resolver Resolver, t TypeInfo, v dynamic.Value) (dynamic.Value, error) {
	m, err := v.AsMap()
	if err != nil {
		return dynamic.Nil, err
	}
	var coerced dynamic.Map
	for _, e := range m.Entries() {
		key, err := Coerce(resolver, *t.key, e.Key)
		if err != nil {
			return dynamic.Nil, dynamic.AddPathElement(err, e.Key)
		}
		value, err := Coerce(resolver, *t.value, e.Value)
		if err != nil {
			return dynamic.Nil, dynamic.AddPathElement(err, e.Key)
		}
		coerced.Set(key, value)
	}
	return dynamic.NewMap(coerced), nil
}

func coerceOptional(resolver Resolver, t TypeInfo, v dynamic.Value) (dynamic.Value, error) {
	m, err := v.AsMap()
	if err != nil {
		return dynamic.Nil, err
	}
	tagValue, err := dynamic.GetUnionTag(m)
	if err != nil {
		return dynamic.Nil, err
	}
	tag, err := tagValue.AsString()
	if err != nil {
		return dynamic.Nil, err
	}
	switch tag {
	case "some":
		inner, err := dynamic.GetField(m, "some")
		if err != nil {
			return dynamic.Nil, err
		}
		coerced, err := Coerce(resolver, *t.elem, inner)
		if err != nil {
			return dynamic.Nil, dynamic.AddPathElement(
				err, dynamic.NewString("some"))
		}
		var result dynamic.Map
		result.Set(dynamic.NewString("some"), coerced)
		return dynamic.NewMap(result), nil
	case "none":
		inner, err := dynamic.GetField(m, "none")
		if err != nil {
			return dynamic.Nil, err
		}
		if inner.Type() != dynamic.TypeNil {
			return dynamic.Nil, dynamic.AddPathElement(
				&dynamic.TypeMismatchError{
					Expected: dynamic.TypeNil, Actual: inner.Type()},
				dynamic.NewString("none"))
		}
		return v, nil
	default:
		return dynamic.Nil, &InvalidOptionalTagError{Tag: tag}
	}
}

func coerceStructure(resolver Resolver, t TypeInfo, v dynamic.Value) (dynamic.Value, error) {
	m, err := v.AsMap()
	if err != nil {
		return dynamic.Nil, err
	}
	var coerced dynamic.Map
	for _, field := range t.fields {
		fieldValue, present := dynamic.HasField(m, field.Name)
		if !present {
			if !field.Omissible {
				return dynamic.Nil, &dynamic.MissingFieldError{Field: field.Name}
			}
			continue
		}
		c, err := Coerce(resolver, field.Schema, fieldValue)
		if err != nil {
			return dynamic.Nil, dynamic.AddPathElement(
				err, dynamic.NewString(field.Name))
		}
		coerced.Set(dynamic.NewString(field.Name), c)
	}
	// Undeclared fields are ignored, not copied through.
	return dynamic.NewMap(coerced), nil
}

func coerceUnion(resolver Resolver, t TypeInfo, v dynamic.Value) (dynamic.Value, error) {
	m, err := v.AsMap()
	if err != nil {
		return dynamic.Nil, err
	}
	tagValue, err := dynamic.GetUnionTag(m)
	if err != nil {
		return dynamic.Nil, err
	}
	tag, err := tagValue.AsString()
	if err != nil {
		return dynamic.Nil, err
	}
	for _, member := range t.members {
		if member.Name != tag {
			continue
		}
		inner, err := dynamic.GetField(m, member.Name)
		if err != nil {
			return dynamic.Nil, err
		}
		c, err := Coerce(resolver, member.Schema, inner)
		if err != nil {
			return dynamic.Nil, dynamic.AddPathElement(
				err, dynamic.NewString(member.Name))
		}
		var result dynamic.Map
		result.Set(dynamic.NewString(member.Name), c)
		return dynamic.NewMap(result), nil
	}
	return dynamic.Nil, &InvalidEnumStringError{Value: tag}
}
