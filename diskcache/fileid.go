//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package diskcache

import "strings"

// External files are named by a deterministic obfuscated encoding of the
// entry id. The obfuscation keeps sequential row ids from producing
// sequential file names; any 1-to-1 encoding would do. Multiplication by
// an odd constant is a bijection over 64-bit integers, so distinct ids
// can never collide.
const fileIDMultiplier = 0x9e3779b97f4a7c15

// fileIDAlphabet deliberately avoids vowels so names never spell words.
const fileIDAlphabet = "bcdfghjklmnpqrstvwxz0123456789"

// fileIDLength is enough base-30 digits to cover all 64-bit ids.
const fileIDLength = 14

func encodeFileID(id int64) string {
	x := uint64(id) * fileIDMultiplier
	base := uint64(len(fileIDAlphabet))
	var sb strings.Builder
	for i := 0; i < fileIDLength; i++ {
		sb.WriteByte(fileIDAlphabet[x%base])
		x /= base
	}
	return sb.String()
}

// decodeFileID inverts encodeFileID. It exists so tooling can map a
// stray file back to its index row.
func decodeFileID(name string) (int64, bool) {
	if len(name) != fileIDLength {
		return 0, false
	}
	base := uint64(len(fileIDAlphabet))
	var x uint64
	for i := len(name) - 1; i >= 0; i-- {
		idx := strings.IndexByte(fileIDAlphabet, name[i])
		if idx < 0 {
			return 0, false
		}
		x = x*base + uint64(idx)
	}
	// The multiplicative inverse of fileIDMultiplier mod 2^64.
	const inverse = 0xf1de83e19937733d
	decoded := int64(x * inverse)
	if encodeFileID(decoded) != name {
		return 0, false
	}
	return decoded, true
}
