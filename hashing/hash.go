// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

// Package hashing defines the fixed-width digest type and the
// capability interfaces (Cryptographer, Signer) that every other
// package in this module treats as an external collaborator.
package hashing

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

// Size is the width, in bytes, of a Hash produced by the digest
// algorithms this module supports.
const Size = 48

// Algorithm tags the digest function used to produce a Hash. It has no
// behavior of its own; it lets a Cryptographer implementation support
// more than one digest over time without breaking wire compatibility.
type Algorithm uint8

const (
	// AlgUnspecified marks a Hash that has not been through a
	// Cryptographer yet (e.g. the null-sentinel).
	AlgUnspecified Algorithm = iota
	// AlgSHA384 is the default digest algorithm.
	AlgSHA384
)

// Hash is a fixed-width cryptographic digest plus the algorithm tag
// that produced it. Hash values are immutable; equality is byte
// equality (spec.md §3, Hash invariants).
type Hash struct {
	alg   Algorithm
	bytes [Size]byte
}

// Null is the canonical sentinel used in place of a missing child's
// hash when computing an internal node's digest (spec.md §4.1).
var Null = Hash{alg: AlgUnspecified}

// New wraps a digest's output bytes into a Hash. It panics if b is not
// exactly Size bytes long, mirroring the teacher's fixed-array Hash
// usage (tree.go's common.Hash) rather than silently truncating.
func New(alg Algorithm, b []byte) Hash {
	if len(b) != Size {
		panic("hashing: digest output must be exactly Size bytes")
	}
	var h Hash
	h.alg = alg
	copy(h.bytes[:], b)
	return h
}

// Bytes returns the digest bytes, excluding the algorithm tag.
func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h.bytes[:])
	return out
}

// Algorithm returns the digest algorithm that produced h.
func (h Hash) Algorithm() Algorithm { return h.alg }

// IsNull reports whether h is the canonical null sentinel.
func (h Hash) IsNull() bool { return h == Null }

// Equal reports byte-for-byte equality, including the algorithm tag.
func (h Hash) Equal(o Hash) bool { return h == o }

// Less gives Hash a total order for use as a map/sort key in tests and
// in deterministic diff output; it is not a cryptographic property.
func (h Hash) Less(o Hash) bool {
	return bytes.Compare(h.bytes[:], o.bytes[:]) < 0
}

// String renders the hash as a hex string, for logging and debug
// printing (spec.md §4.2 "debug printing").
func (h Hash) String() string {
	return hex.EncodeToString(h.bytes[:])
}

// Marshal writes the algorithm tag followed by the raw digest bytes.
func (h Hash) Marshal() []byte {
	out := make([]byte, 1+Size)
	out[0] = byte(h.alg)
	copy(out[1:], h.bytes[:])
	return out
}

// Unmarshal reads a Hash previously produced by Marshal.
func Unmarshal(b []byte) (Hash, []byte, error) {
	if len(b) < 1+Size {
		return Hash{}, nil, errors.New("hashing: truncated hash")
	}
	var h Hash
	h.alg = Algorithm(b[0])
	copy(h.bytes[:], b[1:1+Size])
	return h, b[1+Size:], nil
}

// Cryptographer is the abstracted digest capability named in spec.md
// §1: every hashing operation in this module goes through it, so the
// actual cryptographic primitives stay an external collaborator.
type Cryptographer interface {
	// Digest hashes an arbitrary byte payload.
	Digest(payload []byte) Hash
	// RunningHash folds next into the chain started by prev, using
	// the given algorithm (spec.md glossary, "Running hash").
	RunningHash(prev Hash, next Hash, alg Algorithm) Hash
}

// Signer is the abstracted signing capability named in spec.md §1:
// Hash -> Bytes. Used by objstream to sign rotated stream files.
type Signer interface {
	Sign(h Hash) ([]byte, error)
}

// PutUint32 / PutUint64 are small big-endian helpers shared by the
// binary formats in spec.md §6; kept here rather than repeating
// encoding/binary call sites across packages.
func PutUint32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func PutUint64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
func Uint32(b []byte) uint32       { return binary.BigEndian.Uint32(b) }
func Uint64(b []byte) uint64       { return binary.BigEndian.Uint64(b) }
