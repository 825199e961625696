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
	"github.com/bits-and-blooms/bitset"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
)

// writeState is the state machine named in spec.md §4.9.
type writeState int32

const (
	stateIdle writeState = iota
	stateWriting
	stateFlushing
	statePublishing
)

// WriteSession batches mutations and publishes them atomically on
// EndWriting (spec.md §4.5, "Write session protocol"). Only one
// session may be open on a Store at a time; Put/Delete/EndWriting must
// be called on the same *WriteSession BeginWriting returned.
type WriteSession struct {
	s      *Store
	touch  *bitset.BitSet
	staged map[uint32][]entry
	closed bool
}

func newWriteSession(s *Store) *WriteSession {
	return &WriteSession{
		s:      s,
		touch:  bitset.New(uint(s.numBuckets)),
		staged: make(map[uint32][]entry),
	}
}

// Put stages an upsert for k, appended to its bucket's mutation list
// in arrival order (spec.md §4.5: "put(k, v) — appends to the
// mutation list for k's bucket").
func (ws *WriteSession) Put(k Key, v int64) error {
	if ws.closed {
		return ErrSessionClosed
	}
	bucket := BucketIndex(ws.s.numBuckets, k.Hash())
	ws.touch.Set(uint(bucket))
	ws.staged[bucket] = append(ws.staged[bucket], entry{keyHash: k.Hash(), value: v, keyBytes: k.Bytes()})
	return nil
}

// Delete stages a deletion, encoded as put(k, Tombstone) (spec.md
// §4.5).
func (ws *WriteSession) Delete(k Key) error { return ws.Put(k, Tombstone) }

// EndWriting applies every staged mutation, ascending by bucket index
// for locality, writes the rewritten buckets to the session's data
// file, and publishes the new locations so readers see them
// atomically (spec.md §4.5, §4.9). On any error the session is
// abandoned and the map's prior published state is left untouched
// (spec.md §7).
func (ws *WriteSession) EndWriting() error {
	if ws.closed {
		return ErrSessionClosed
	}
	ws.s.mu.Lock()
	defer ws.s.mu.Unlock()
	if ws.s.state != stateWriting || ws.s.session != ws {
		return ErrThreadAffinity
	}
	ws.s.state = stateFlushing

	type pending struct {
		bucket uint32
		loc    datafile.Location
	}
	var updates []pending

	for i, ok := ws.touch.NextSet(0); ok; i, ok = ws.touch.NextSet(i + 1) {
		bucketIdx := uint32(i)
		b, err := ws.s.readBucket(bucketIdx)
		if err != nil {
			ws.closed = true
			ws.s.state = stateIdle
			ws.s.session = nil
			_ = ws.s.dir.AbortWriting()
			return err
		}
		for _, mut := range ws.staged[bucketIdx] {
			b.apply(mut.keyHash, mut.keyBytes, mut.value)
		}
		loc, err := ws.s.file.Append(b.encode())
		if err != nil {
			ws.closed = true
			ws.s.state = stateIdle
			ws.s.session = nil
			_ = ws.s.dir.AbortWriting()
			return err
		}
		updates = append(updates, pending{bucket: bucketIdx, loc: loc})
	}

	if _, err := ws.s.dir.EndWriting(); err != nil {
		ws.closed = true
		ws.s.state = stateIdle
		ws.s.session = nil
		_ = ws.s.dir.AbortWriting()
		return err
	}

	ws.s.state = statePublishing
	for _, u := range updates {
		ws.s.index.publish(u.bucket, u.loc)
	}

	ws.closed = true
	ws.s.state = stateIdle
	ws.s.session = nil
	return nil
}
