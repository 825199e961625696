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
	"sort"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
)

// writeState mirrors diskmap's write-session state machine (spec.md
// §4.9).
type writeState int32

const (
	stateIdle writeState = iota
	stateWriting
	stateFlushing
	statePublishing
)

// WriteSession batches keyed writes and publishes them, plus a new
// valid key range, atomically on EndWriting (spec.md §4.6). Only one
// session may be open on a Store at a time; Put/Delete/EndWriting must
// be called on the same *WriteSession BeginWriting returned.
type WriteSession struct {
	s      *Store
	staged map[int64]record
	closed bool
}

func newWriteSession(s *Store) *WriteSession {
	return &WriteSession{s: s, staged: make(map[int64]record)}
}

// Put stages a key's payload for the next EndWriting. A key written
// more than once in the same session keeps only its final value.
func (ws *WriteSession) Put(key int64, payload []byte) error {
	if ws.closed {
		return ErrSessionClosed
	}
	ws.staged[key] = record{key: key, payload: payload}
	return nil
}

// Delete stages a tombstone for key.
func (ws *WriteSession) Delete(key int64) error {
	if ws.closed {
		return ErrSessionClosed
	}
	ws.staged[key] = record{key: key, tombstone: true}
	return nil
}

// EndWriting appends every staged record in ascending key order,
// publishes the new valid key range min/max, and makes the new
// locations visible atomically (spec.md §4.6, §4.9). On any error the
// session is abandoned and the store's prior published state is left
// untouched.
func (ws *WriteSession) EndWriting(min, max int64) error {
	if ws.closed {
		return ErrSessionClosed
	}
	if min > max {
		return ErrInvalidRange
	}
	ws.s.mu.Lock()
	defer ws.s.mu.Unlock()
	if ws.s.state != stateWriting || ws.s.session != ws {
		return ErrThreadAffinity
	}
	ws.s.state = stateFlushing

	keys := make([]int64, 0, len(ws.staged))
	for k := range ws.staged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	type pending struct {
		key int64
		loc datafile.Location
	}
	updates := make([]pending, 0, len(keys))
	for _, k := range keys {
		loc, err := ws.s.file.Append(encodeRecord(ws.staged[k]))
		if err != nil {
			ws.closed = true
			ws.s.state = stateIdle
			ws.s.session = nil
			_ = ws.s.dir.AbortWriting()
			return err
		}
		updates = append(updates, pending{key: k, loc: loc})
	}

	if _, err := ws.s.dir.EndWriting(); err != nil {
		ws.closed = true
		ws.s.state = stateIdle
		ws.s.session = nil
		_ = ws.s.dir.AbortWriting()
		return err
	}

	ws.s.state = statePublishing
	ws.s.index.setRange(min, max)
	for _, u := range updates {
		ws.s.index.publish(u.key, u.loc)
	}

	ws.closed = true
	ws.s.state = stateIdle
	ws.s.session = nil
	return nil
}
