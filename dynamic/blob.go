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
	"bytes"
	"fmt"
)

// Blob is a binary payload: a byte span plus an ownership handle that
// keeps the backing memory alive. In Go the garbage collector supplies
// the ownership semantics; the owner field exists for blobs that view
// memory owned elsewhere (mapped files, pooled buffers) so the backing
// object stays reachable for the blob's lifetime.
type Blob struct {
	data  []byte
	owner any
}

// MakeBlob wraps a byte slice as a blob. The blob aliases the slice.
func MakeBlob(data []byte) Blob {
	return Blob{data: data}
}

// MakeOwnedBlob wraps a byte span whose backing memory is owned by owner.
func MakeOwnedBlob(data []byte, owner any) Blob {
	return Blob{data: data, owner: owner}
}

// Bytes returns the underlying bytes. The slice must not be mutated.
func (b Blob) Bytes() []byte { return b.data }

// Size returns the blob length in bytes.
func (b Blob) Size() int { return len(b.data) }

// Compare orders blobs lexicographically by content.
func (b Blob) Compare(other Blob) int {
	return bytes.Compare(b.data, other.data)
}

// Equal reports content equality.
func (b Blob) Equal(other Blob) bool {
	return bytes.Equal(b.data, other.data)
}

// String renders a short description for diagnostics.
func (b Blob) String() string {
	return fmt.Sprintf("<blob:%d bytes>", len(b.data))
}
