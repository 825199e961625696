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

	"github.com/hashgraph/hedera-platform-sub009/datafile"
)

// bucketIndex is the concurrent, CAS-capable array of bucket
// locations named in spec.md §5 ("Shared resources"): reads are
// lock-free against a consistent snapshot, writes from a publishing
// write-session always win, and a merge only replaces a location via
// CAS so a concurrent write can never be silently clobbered.
//
// Its buffered-overlay mode (spec.md §4.5, "Index") lets SnapshotBegin
// freeze the base array for the snapshot's duration while writes
// continue to land in an overlay map; SnapshotEnd folds the overlay
// back into the base array.
type bucketIndex struct {
	base []atomic.Uint64

	overlayActive atomic.Bool
	overlayMu     sync.Mutex
	overlay       map[uint32]uint64
}

func newBucketIndex(numBuckets uint32) *bucketIndex {
	idx := &bucketIndex{base: make([]atomic.Uint64, numBuckets)}
	for i := range idx.base {
		idx.base[i].Store(uint64(datafile.NullLocation))
	}
	return idx
}

func (idx *bucketIndex) load(bucket uint32) datafile.Location {
	if idx.overlayActive.Load() {
		idx.overlayMu.Lock()
		v, ok := idx.overlay[bucket]
		idx.overlayMu.Unlock()
		if ok {
			return datafile.Location(v)
		}
	}
	return datafile.Location(idx.base[bucket].Load())
}

// publish performs a "writer always wins" update: direct store to the
// overlay if one is active, otherwise direct store to the base array.
func (idx *bucketIndex) publish(bucket uint32, loc datafile.Location) {
	if idx.overlayActive.Load() {
		idx.overlayMu.Lock()
		if idx.overlay == nil {
			idx.overlay = make(map[uint32]uint64)
		}
		idx.overlay[bucket] = uint64(loc)
		idx.overlayMu.Unlock()
		return
	}
	idx.base[bucket].Store(uint64(loc))
}

// cas performs a merge's compare-and-swap publish: it only takes
// effect if the location is still what the merge observed, so a
// concurrent write-session publish is never lost (spec.md §4.7,
// "if CAS fails, another writer has superseded the entry").
func (idx *bucketIndex) cas(bucket uint32, old, new datafile.Location) bool {
	if idx.overlayActive.Load() {
		idx.overlayMu.Lock()
		defer idx.overlayMu.Unlock()
		cur, ok := idx.overlay[bucket]
		if !ok {
			cur = idx.base[bucket].Load()
		}
		if cur != uint64(old) {
			return false
		}
		if idx.overlay == nil {
			idx.overlay = make(map[uint32]uint64)
		}
		idx.overlay[bucket] = uint64(new)
		return true
	}
	return idx.base[bucket].CompareAndSwap(uint64(old), uint64(new))
}

// beginOverlay enables buffered-overlay mode (spec.md §4.9's snapshot
// phase 1: "enable index overlay").
func (idx *bucketIndex) beginOverlay() {
	idx.overlayMu.Lock()
	idx.overlay = make(map[uint32]uint64)
	idx.overlayMu.Unlock()
	idx.overlayActive.Store(true)
}

// endOverlay folds any overlay entries back into the base array and
// disables overlay mode (spec.md §4.9 phase 3: "overlay merges back
// into base").
func (idx *bucketIndex) endOverlay() {
	idx.overlayMu.Lock()
	for bucket, loc := range idx.overlay {
		idx.base[bucket].Store(loc)
	}
	idx.overlay = nil
	idx.overlayMu.Unlock()
	idx.overlayActive.Store(false)
}

// snapshotLocations returns a stable copy of the base array, suitable
// for writing out as the frozen snapshot index (spec.md §6, "Hash map
// index file"). Must be called only while overlay mode is active, so
// concurrent publishes land in the overlay instead of mutating base.
func (idx *bucketIndex) snapshotLocations() []datafile.Location {
	out := make([]datafile.Location, len(idx.base))
	for i := range idx.base {
		out[i] = datafile.Location(idx.base[i].Load())
	}
	return out
}
