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

package kvstore

import (
	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// recordHeaderSize covers key:i64, tombstone:i8, payload_len:i32.
const recordHeaderSize = 8 + 1 + 4

// record is one on-disk entry: key:i64, tombstone:i8, payload_len:i32,
// payload bytes. Unlike diskmap's buckets, a key here maps to exactly
// one record — a rewritten value is a brand new record at a new
// location, never an in-place edit.
type record struct {
	key       int64
	tombstone bool
	payload   []byte
}

func encodeRecord(r record) []byte {
	out := make([]byte, recordHeaderSize+len(r.payload))
	hashing.PutUint64(out[0:8], uint64(r.key))
	if r.tombstone {
		out[8] = 1
	}
	hashing.PutUint32(out[9:13], uint32(len(r.payload)))
	copy(out[13:], r.payload)
	return out
}

func decodeRecord(data []byte) (record, error) {
	if len(data) < recordHeaderSize {
		return record{}, errTruncatedRecord
	}
	key := int64(hashing.Uint64(data[0:8]))
	tomb := data[8] != 0
	n := int(hashing.Uint32(data[9:13]))
	if recordHeaderSize+n > len(data) {
		return record{}, errTruncatedRecord
	}
	payload := append([]byte(nil), data[13:13+n]...)
	return record{key: key, tombstone: tomb, payload: payload}, nil
}

// RecordFramer is a datafile.RecordFramer for kvstore records.
func RecordFramer(data []byte) (int, error) {
	if len(data) < recordHeaderSize {
		return 0, errTruncatedRecord
	}
	return recordHeaderSize + int(hashing.Uint32(data[9:13])), nil
}

// headPayloadLen reads payload_len out of a record's leading
// recordHeaderSize bytes, for callers that read the header before
// deciding how much of the payload to read.
func headPayloadLen(head []byte) uint32 {
	return hashing.Uint32(head[9:13])
}
