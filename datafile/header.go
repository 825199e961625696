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

package datafile

import (
	"fmt"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// HeaderSize is the fixed, wire-exact size of a Header (spec.md §6,
// "Data file (generic records)").
const HeaderSize = 4 + 8 + 8 + 4 + 8 + 8

// FormatVersion is the only header layout this package understands.
const FormatVersion int32 = 1

// Header is the per-file metadata block written once, at StartWriting
// time, and never rewritten afterward (spec.md §3, DataFile: "per-file
// header with key-range metadata").
type Header struct {
	FormatVersion     int32
	CreationTS        int64
	SerializerClass   int64
	SerializerVersion int32
	MinKey            int64
	MaxKey            int64
}

// Marshal renders h in the wire-exact big-endian layout named in
// spec.md §6.
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderSize)
	hashing.PutUint32(b[0:4], uint32(h.FormatVersion))
	hashing.PutUint64(b[4:12], uint64(h.CreationTS))
	hashing.PutUint64(b[12:20], uint64(h.SerializerClass))
	hashing.PutUint32(b[20:24], uint32(h.SerializerVersion))
	hashing.PutUint64(b[24:32], uint64(h.MinKey))
	hashing.PutUint64(b[32:40], uint64(h.MaxKey))
	return b
}

// ParseHeader reads a Header from the front of b, returning the
// remaining bytes.
func ParseHeader(b []byte) (Header, []byte, error) {
	if len(b) < HeaderSize {
		return Header{}, nil, fmt.Errorf("datafile: truncated header (%d bytes)", len(b))
	}
	h := Header{
		FormatVersion:     int32(hashing.Uint32(b[0:4])),
		CreationTS:        int64(hashing.Uint64(b[4:12])),
		SerializerClass:   int64(hashing.Uint64(b[12:20])),
		SerializerVersion: int32(hashing.Uint32(b[20:24])),
		MinKey:            int64(hashing.Uint64(b[24:32])),
		MaxKey:            int64(hashing.Uint64(b[32:40])),
	}
	if h.FormatVersion != FormatVersion {
		return Header{}, nil, fmt.Errorf("datafile: unsupported format version %d", h.FormatVersion)
	}
	return h, b[HeaderSize:], nil
}

// Location packs a (fileIndex, offset) pair into the 64-bit value
// spec.md §3 names BucketLocation: the high 32 bits are the
// monotonically-assigned file index, the low 32 bits the byte offset
// of the record within that file.
type Location uint64

// NullLocation is the sentinel "nowhere" location, used for a key that
// has never been written.
const NullLocation Location = 0xFFFFFFFFFFFFFFFF

// NewLocation packs a file index and byte offset into a Location.
func NewLocation(fileIndex, offset uint32) Location {
	return Location(uint64(fileIndex)<<32 | uint64(offset))
}

// FileIndex returns the file-index half of the location.
func (l Location) FileIndex() uint32 { return uint32(l >> 32) }

// Offset returns the byte-offset half of the location.
func (l Location) Offset() uint32 { return uint32(l) }

// IsNull reports whether l is the "nowhere" sentinel.
func (l Location) IsNull() bool { return l == NullLocation }

func (l Location) String() string {
	if l.IsNull() {
		return "<null>"
	}
	return fmt.Sprintf("%d:%d", l.FileIndex(), l.Offset())
}
