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

	"github.com/hashgraph/hedera-platform-sub009/datafile"
)

// RootKey is the one key exempt from the valid key range boundary
// (spec.md §4.6): it always resolves to "not found" when absent,
// regardless of whether it currently falls inside [min, max], since a
// fresh tree's root legitimately has nothing written yet.
const RootKey int64 = 0

// rangeIndex is kvstore's direct key-to-location mapping, the
// generalization of diskmap's bucket array to a publishable, advancing
// key range (spec.md §4.6: "Index is a direct mapping key →
// data_location"). A Go map serves the same "direct mapping" contract
// as a contiguous array without the reallocation bookkeeping a shifting
// range would otherwise force on a fixed-size slice.
type rangeIndex struct {
	mu  sync.RWMutex
	min int64
	max int64
	loc map[int64]datafile.Location

	overlayActive bool
	overlay       map[int64]datafile.Location
}

func newRangeIndex() *rangeIndex {
	return &rangeIndex{
		min: 1,
		max: 0, // empty range until the first EndWriting publishes one
		loc: make(map[int64]datafile.Location),
	}
}

func (idx *rangeIndex) inRange(key int64) bool {
	return key == RootKey || (key >= idx.min && key <= idx.max)
}

// load returns the key's location, honoring the range exemption for
// RootKey (spec.md §4.6).
func (idx *rangeIndex) load(key int64) (datafile.Location, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.inRange(key) {
		return datafile.NullLocation, false
	}
	if idx.overlayActive {
		if v, ok := idx.overlay[key]; ok {
			return v, true
		}
	}
	loc, ok := idx.loc[key]
	return loc, ok
}

// publish performs a "writer always wins" update, same discipline as
// diskmap's bucket index.
func (idx *rangeIndex) publish(key int64, loc datafile.Location) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.overlayActive {
		idx.overlay[key] = loc
		return
	}
	idx.loc[key] = loc
}

// cas is merge's compare-and-swap publish.
func (idx *rangeIndex) cas(key int64, old, new datafile.Location) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	var cur datafile.Location
	var ok bool
	if idx.overlayActive {
		cur, ok = idx.overlay[key]
	}
	if !ok {
		cur, ok = idx.loc[key]
	}
	if !ok || cur != old {
		return false
	}
	if idx.overlayActive {
		idx.overlay[key] = new
	} else {
		idx.loc[key] = new
	}
	return true
}

// setRange atomically publishes the new valid key range (spec.md §4.6:
// "end_writing(min, max) publishes the new valid-key range
// atomically").
func (idx *rangeIndex) setRange(min, max int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.min, idx.max = min, max
}

func (idx *rangeIndex) currentRange() (min, max int64) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.min, idx.max
}

func (idx *rangeIndex) beginOverlay() {
	idx.mu.Lock()
	idx.overlay = make(map[int64]datafile.Location)
	idx.overlayActive = true
	idx.mu.Unlock()
}

func (idx *rangeIndex) endOverlay() {
	idx.mu.Lock()
	for k, v := range idx.overlay {
		idx.loc[k] = v
	}
	idx.overlay = nil
	idx.overlayActive = false
	idx.mu.Unlock()
}

// snapshotAll returns a stable copy of every key/location pair
// currently indexed, along with the range in force when it was taken.
// Reads the base map only, so during an active snapshot it returns the
// frozen pre-overlay view by design; outside a snapshot (e.g. a
// Merge's liveness check) it is simply the current state.
func (idx *rangeIndex) snapshotAll() (min, max int64, entries map[int64]datafile.Location) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[int64]datafile.Location, len(idx.loc))
	for k, v := range idx.loc {
		out[k] = v
	}
	return idx.min, idx.max, out
}
