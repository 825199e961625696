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

package merkle

import (
	"sync"
	"sync/atomic"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// Node is the tagged-union capability every tree element exposes:
// cached hash, parent route, reference count, immutability, and
// release (spec.md §4.1). *LeafNode and *InternalNode are the only
// implementations.
type Node interface {
	// ClassID and Version identify the concrete node/payload type for
	// the self-describing serialization format (spec.md §4.3).
	ClassID() uint64
	Version() uint32

	// Hash returns the cached digest, computing it via rehash if
	// absent. Leaves hash their payload; internals hash their
	// children (spec.md §4.1).
	Hash(crypto hashing.Cryptographer) hashing.Hash
	invalidate()

	// Route returns the node's route, or errUndefinedRoute if the
	// node is currently shared (refcount > 1).
	Route() (hashing.Route, error)
	// SetRoute relocates the node; fails with RouteConflictError
	// unless refcount <= 1 (spec.md §4.1).
	SetRoute(hashing.Route) error

	RefCount() int32
	Acquire() error
	ReleaseHandle() error
	ExplicitRelease() error

	Immutable() bool
	SetImmutable()

	Archived() bool
	SetArchived(bool)

	// Copy returns a shallow clone for fast-copy: children (for an
	// internal node) are shared and refcount-bumped, not deep-copied
	// (spec.md §4.1, glossary "Fast-copy").
	Copy() Node
}

// base holds the state every Node implementation shares: the cached
// hash, current route, refcount, and the immutable/archived/released
// flags. It is embedded by value into LeafNode and InternalNode,
// mirroring the teacher's flat per-node field layout (tree.go's
// InternalNode: children, depth, hash, commitment all inline) rather
// than a pointer-shared base type.
type base struct {
	mu       sync.Mutex
	route    hashing.Route
	hash     *hashing.Hash
	refCount int32 // atomic; -1 = released, 0 = unowned, >0 = live owners
	immutable atomic.Bool
	archived  atomic.Bool
	released  bool
	onRelease func()
}

func (b *base) Route() (hashing.Route, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if atomic.LoadInt32(&b.refCount) > 1 {
		return hashing.Route{}, errUndefinedRoute
	}
	return b.route, nil
}

func (b *base) SetRoute(r hashing.Route) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rc := atomic.LoadInt32(&b.refCount)
	if rc > 1 {
		return &RouteConflictError{RefCount: rc}
	}
	b.route = r
	return nil
}

func (b *base) RefCount() int32 { return atomic.LoadInt32(&b.refCount) }

// Acquire implements the "c >= 0 -> c+1" transition (spec.md §4.1).
func (b *base) Acquire() error {
	for {
		cur := atomic.LoadInt32(&b.refCount)
		if cur == -1 {
			return &ReferenceCountError{Op: "acquire", Err: errReleased}
		}
		if atomic.CompareAndSwapInt32(&b.refCount, cur, cur+1) {
			return nil
		}
	}
}

// ReleaseHandle implements "c > 0 -> c-1; on_release if crossed to 0".
func (b *base) ReleaseHandle() error {
	for {
		cur := atomic.LoadInt32(&b.refCount)
		if cur <= 0 {
			return &ReferenceCountError{Op: "release_handle", Err: errNotOwned}
		}
		if atomic.CompareAndSwapInt32(&b.refCount, cur, cur-1) {
			if cur-1 == 0 {
				b.runRelease()
			}
			return nil
		}
	}
}

// ExplicitRelease implements "only legal when c == 0; sets -1".
func (b *base) ExplicitRelease() error {
	if !atomic.CompareAndSwapInt32(&b.refCount, 0, -1) {
		return &ReferenceCountError{Op: "explicit_release", Err: errNotAtZero}
	}
	b.runRelease()
	return nil
}

func (b *base) runRelease() {
	b.mu.Lock()
	already := b.released
	b.released = true
	hook := b.onRelease
	b.mu.Unlock()
	if already || hook == nil {
		return
	}
	hook()
}

func (b *base) Immutable() bool   { return b.immutable.Load() }
func (b *base) SetImmutable()     { b.immutable.Store(true) }
func (b *base) Archived() bool    { return b.archived.Load() }
func (b *base) SetArchived(v bool) { b.archived.Store(v) }

func (b *base) invalidate() {
	b.mu.Lock()
	b.hash = nil
	b.mu.Unlock()
}

func (b *base) cachedHash() (hashing.Hash, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hash == nil {
		return hashing.Hash{}, false
	}
	return *b.hash, true
}

func (b *base) setCachedHash(h hashing.Hash) {
	b.mu.Lock()
	b.hash = &h
	b.mu.Unlock()
}

func (b *base) checkMutable() error {
	if b.Immutable() {
		return errImmutable
	}
	return nil
}

// copyBase returns a fresh base for a fast-copy: the route is carried
// over, immutability is not copied (a copy starts mutable), refcount
// starts at 0,
// and the hash cache is preserved since children are shared, so the
// digest does not change until a mutation invalidates it.
func (b *base) copyBase() base {
	b.mu.Lock()
	defer b.mu.Unlock()
	nb := base{route: b.route}
	if b.hash != nil {
		h := *b.hash
		nb.hash = &h
	}
	return nb
}
