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
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
)

// Store is DiskKvStore (spec.md §4.6): a persistent mapping from
// contiguous long keys to arbitrary payloads, addressed directly
// rather than through a hash bucket, with a publishable valid key
// range used both to answer out-of-range lookups as "not found" and to
// garbage-collect stale keys on merge.
type Store struct {
	Logger zerolog.Logger

	dir   *datafile.Collection
	index *rangeIndex

	mu      sync.Mutex
	state   writeState
	session *WriteSession
	file    *datafile.File

	snapshotInFlight atomic.Bool
	permit           *datafile.PausePermit
}

// Open creates a Store rooted at dir. Data files already in dir are
// opened, but the key index starts empty: records written by an
// earlier Store, or hard-linked in by a snapshot, are not visible to
// Get.
func Open(dir string) (*Store, error) {
	coll, err := datafile.Open(dir)
	if err != nil {
		return nil, err
	}
	return &Store{
		dir:    coll,
		index:  newRangeIndex(),
		permit: datafile.NewPausePermit(),
	}, nil
}

// ValidKeyRange returns the currently published [min, max] key range.
func (s *Store) ValidKeyRange() (min, max int64) { return s.index.currentRange() }

// BeginWriting opens a new write session. Only one session may be open
// at a time.
func (s *Store) BeginWriting(header datafile.Header) (*WriteSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateIdle {
		return nil, ErrWriteInProgress
	}
	f, err := s.dir.StartWriting(header)
	if err != nil {
		return nil, err
	}
	ws := newWriteSession(s)
	s.state = stateWriting
	s.session = ws
	s.file = f
	return ws, nil
}

// Get looks up key, returning ErrNotFound if it falls outside the
// valid key range (unless it is RootKey), is absent, or is tombstoned
// (spec.md §4.6).
func (s *Store) Get(key int64) ([]byte, error) {
	loc, ok := s.index.load(key)
	if !ok {
		return nil, ErrNotFound
	}
	f, err := s.dir.Acquire(loc.FileIndex())
	if err != nil {
		return nil, err
	}
	defer s.dir.Release(f)

	head, err := f.ReadAt(loc.Offset(), recordHeaderSize)
	if err != nil {
		return nil, err
	}
	n := int(headPayloadLen(head))
	raw, err := f.ReadAt(loc.Offset(), recordHeaderSize+n)
	if err != nil {
		return nil, err
	}
	r, err := decodeRecord(raw)
	if err != nil {
		return nil, &CorruptFileError{Key: key, Err: err}
	}
	if r.tombstone {
		return nil, ErrNotFound
	}
	return r.payload, nil
}

// Close releases the Store's resources. It is an error to Close while
// a write session is in progress.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateIdle {
		return ErrWriteInProgress
	}
	return nil
}
