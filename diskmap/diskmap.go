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
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// Store is a persistent map from Key to a 64-bit value (spec.md §4.5,
// DiskHashMap). It owns a datafile.Collection as its backing file
// family and keeps the bucket index in memory.
type Store struct {
	Logger zerolog.Logger

	dir        *datafile.Collection
	numBuckets uint32
	minBuckets uint32
	index      *bucketIndex

	mu      sync.Mutex
	state   writeState
	session *WriteSession
	file    *datafile.File

	snapshotInFlight atomic.Bool
	permit           *datafile.PausePermit
}

// Open creates a Store rooted at dir, sized for mapSize entries per
// spec.md §4.5's sizing formula. Data files already in dir are opened,
// but the bucket index starts empty: buckets written by an earlier
// Store, or hard-linked in by a snapshot, are not visible to Get.
func Open(dir string, mapSize uint64) (*Store, error) {
	minBuckets, numBuckets, err := ComputeBucketCounts(mapSize)
	if err != nil {
		return nil, err
	}
	coll, err := datafile.Open(dir)
	if err != nil {
		return nil, err
	}
	return &Store{
		dir:        coll,
		numBuckets: numBuckets,
		minBuckets: minBuckets,
		index:      newBucketIndex(numBuckets),
		permit:     datafile.NewPausePermit(),
	}, nil
}

// NumBuckets returns the map's bucket count.
func (s *Store) NumBuckets() uint32 { return s.numBuckets }

// BeginWriting opens a new write session (spec.md §4.5: "records the
// calling thread; opens a new data file for appends"). Only one
// session may be open at a time.
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

// Get looks up k, returning ErrNotFound if absent or tombstoned
// (spec.md §4.5: "Lookup: get(k) computes bucket index, reads the
// bucket via file-collection ..., then linear scans entries").
func (s *Store) Get(k Key) (int64, error) {
	bucketIdx := BucketIndex(s.numBuckets, k.Hash())
	b, err := s.readBucket(bucketIdx)
	if err != nil {
		return 0, err
	}
	i := b.find(k.Hash(), k.Bytes())
	if i < 0 {
		return 0, ErrNotFound
	}
	if b.entries[i].value == Tombstone {
		return 0, ErrNotFound
	}
	return b.entries[i].value, nil
}

// readBucket loads the current on-disk contents of bucketIdx, or an
// empty bucket if nothing has ever been written to that index.
func (s *Store) readBucket(bucketIdx uint32) (*bucket, error) {
	loc := s.index.load(bucketIdx)
	if loc.IsNull() {
		return newBucket(bucketIdx), nil
	}
	f, err := s.dir.Acquire(loc.FileIndex())
	if err != nil {
		return nil, err
	}
	defer s.dir.Release(f)

	head, err := f.ReadAt(loc.Offset(), 12)
	if err != nil {
		return nil, err
	}
	size := int(hashing.Uint32(head[4:8]))
	raw, err := f.ReadAt(loc.Offset(), size)
	if err != nil {
		return nil, err
	}
	b, err := decodeBucket(raw)
	if err != nil {
		return nil, &CorruptFileError{BucketIndex: bucketIdx, Err: err}
	}
	return b, nil
}

// Close releases the Store's resources. It is an error to Close while
// a write session is in progress (spec.md §4.9: "close legal from
// Idle; from any other state, fails").
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateIdle {
		return ErrWriteInProgress
	}
	return nil
}
