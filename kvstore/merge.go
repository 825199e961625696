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
	"time"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

const recordSerializerClass = 2

// Merge compacts the files filter selects into one freshly written
// file. A record survives only if its key is still live in the index
// AND falls within the currently published valid key range (or is
// RootKey) — keys the range has advanced past are dropped for free as
// part of the rewrite (spec.md §4.6: "this provides free garbage
// collection as the range advances"). The pause permit keeps two
// merges on this Store from overlapping (the second returns
// datafile.ErrMergePaused); snapshots do not take it.
func (s *Store) Merge(filter datafile.MergeFilter, minFiles int) error {
	candidates := s.dir.Files()
	selected := filter(candidates, minFiles)
	if len(selected) == 0 {
		return ErrMergeAborted
	}

	keyOf := make(map[datafile.Location]int64, 64)
	isLive := func(old datafile.Location) (bool, error) {
		f, err := s.dir.Acquire(old.FileIndex())
		if err != nil {
			return false, err
		}
		defer s.dir.Release(f)
		head, err := f.ReadAt(old.Offset(), 8)
		if err != nil {
			return false, err
		}
		key := int64(hashing.Uint64(head))
		keyOf[old] = key

		min, max, _ := s.index.snapshotAll()
		if key != RootKey && (key < min || key > max) {
			return false, nil
		}
		loc, ok := s.index.load(key)
		return ok && loc == old, nil
	}
	mover := func(old, newLoc datafile.Location) (bool, error) {
		key := keyOf[old]
		superseded := !s.index.cas(key, old, newLoc)
		return superseded, nil
	}

	header := datafile.Header{
		CreationTS:        time.Now().Unix(),
		SerializerClass:   recordSerializerClass,
		SerializerVersion: 1,
	}
	_, err := datafile.MergeFiles(s.dir, s.dir, RecordFramer, selected, isLive, mover, header, s.permit)
	return err
}
