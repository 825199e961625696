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

package diskmap

import (
	"github.com/cespare/xxhash/v2"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// Tombstone marks a deleted key inside a bucket (spec.md §6, "Reserved
// values").
const Tombstone int64 = -1 << 63

// Key is anything a Store can index: a hash for bucket selection and a
// byte serialization for the side-channel equality check inside a
// bucket (spec.md §4.5: "Keys are serialized only for comparison, not
// deserialized").
type Key interface {
	Hash() uint32
	Bytes() []byte
}

// BytesKey is a ready-made Key for raw byte-slice keys, hashed with
// xxhash (the default key hash named in the component ledger).
type BytesKey []byte

func (k BytesKey) Hash() uint32  { return uint32(xxhash.Sum64(k)) }
func (k BytesKey) Bytes() []byte { return k }

// entry is one in-memory bucket record (spec.md §4.5's bucket
// on-disk layout).
type entry struct {
	keyHash  uint32
	value    int64
	keyBytes []byte
}

// bucket is the in-memory working set for one bucket index, built by
// reading an existing on-disk record (if any) and applying a write
// session's staged mutations before being re-serialized.
type bucket struct {
	index   uint32
	entries []entry
}

func newBucket(index uint32) *bucket { return &bucket{index: index} }

// find returns the entry index matching keyHash+keyBytes, or -1.
func (b *bucket) find(keyHash uint32, keyBytes []byte) int {
	for i, e := range b.entries {
		if e.keyHash != keyHash {
			continue
		}
		if string(e.keyBytes) == string(keyBytes) {
			return i
		}
	}
	return -1
}

// apply performs one put/delete mutation against the bucket's working
// set (spec.md §4.5, "Put/delete semantics inside a bucket").
func (b *bucket) apply(keyHash uint32, keyBytes []byte, value int64) {
	i := b.find(keyHash, keyBytes)
	if value == Tombstone {
		if i >= 0 {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
		}
		return
	}
	if i >= 0 {
		b.entries[i].value = value
		return
	}
	b.entries = append(b.entries, entry{keyHash: keyHash, value: value, keyBytes: keyBytes})
}

// encode renders the bucket in the exact on-disk layout of spec.md §6:
// bucket_index:i32, size_bytes:i32, entry_count:i32, then entries of
// key_hash:i32, value:i64, key length:i32, key bytes.
func (b *bucket) encode() []byte {
	size := 12
	for _, e := range b.entries {
		size += 4 + 8 + 4 + len(e.keyBytes)
	}
	out := make([]byte, size)
	hashing.PutUint32(out[0:4], b.index)
	hashing.PutUint32(out[4:8], uint32(size))
	hashing.PutUint32(out[8:12], uint32(len(b.entries)))
	off := 12
	for _, e := range b.entries {
		hashing.PutUint32(out[off:off+4], e.keyHash)
		off += 4
		hashing.PutUint64(out[off:off+8], uint64(e.value))
		off += 8
		hashing.PutUint32(out[off:off+4], uint32(len(e.keyBytes)))
		off += 4
		copy(out[off:], e.keyBytes)
		off += len(e.keyBytes)
	}
	return out
}

// BucketFramer is a datafile.RecordFramer for bucket records: the
// record's total length is its own size_bytes field.
func BucketFramer(data []byte) (int, error) {
	if len(data) < 12 {
		return 0, errTruncatedBucket
	}
	return int(hashing.Uint32(data[4:8])), nil
}

func decodeBucket(data []byte) (*bucket, error) {
	if len(data) < 12 {
		return nil, errTruncatedBucket
	}
	index := hashing.Uint32(data[0:4])
	size := hashing.Uint32(data[4:8])
	count := hashing.Uint32(data[8:12])
	if int(size) > len(data) {
		return nil, errTruncatedBucket
	}
	b := &bucket{index: index, entries: make([]entry, 0, count)}
	off := 12
	for i := uint32(0); i < count; i++ {
		if off+16 > len(data) {
			return nil, errTruncatedBucket
		}
		keyHash := hashing.Uint32(data[off : off+4])
		value := int64(hashing.Uint64(data[off+4 : off+12]))
		keyLen := int(hashing.Uint32(data[off+12 : off+16]))
		off += 16
		if off+keyLen > len(data) {
			return nil, errTruncatedBucket
		}
		keyBytes := append([]byte(nil), data[off:off+keyLen]...)
		off += keyLen
		b.entries = append(b.entries, entry{keyHash: keyHash, value: value, keyBytes: keyBytes})
	}
	return b, nil
}
