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

import "github.com/hashgraph/hedera-platform-sub009/hashing"

// InternalNode is a tagged internal node: an ordered, possibly-sparse
// list of children bounded by a per-class-version [min, max] child
// count (spec.md §3, Internal).
type InternalNode struct {
	base
	classID  uint64
	version  uint32
	children []Node // nil entries are "no child" (hash as Null)
	minKids  int
	maxKids  int
}

// NewInternal builds an internal node with capacity for maxChildren
// children, all initially empty.
func NewInternal(classID uint64, version uint32, minChildren, maxChildren int) *InternalNode {
	n := &InternalNode{
		classID:  classID,
		version:  version,
		children: make([]Node, maxChildren),
		minKids:  minChildren,
		maxKids:  maxChildren,
	}
	n.onRelease = n.release
	return n
}

func (n *InternalNode) ClassID() uint64 { return n.classID }
func (n *InternalNode) Version() uint32 { return n.version }

// ChildCount returns the node's declared capacity (spec.md's
// "declared child count" written during serialization), not the
// number of non-nil children.
func (n *InternalNode) ChildCount() int { return len(n.children) }

// Child returns the child at index i, or nil if unset.
func (n *InternalNode) Child(i int) Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Children returns the node's child slice directly; callers must not
// retain it across a SetChild call.
func (n *InternalNode) Children() []Node { return n.children }

// LiveChildCount counts the non-nil children, used to validate the
// [min, max] invariant (spec.md §3).
func (n *InternalNode) LiveChildCount() int {
	c := 0
	for _, ch := range n.children {
		if ch != nil {
			c++
		}
	}
	return c
}

// SetChild installs child at index i, invalidating this node's cached
// hash. It does not, by itself, invalidate ancestors — callers
// mutating a tree in place go through Tree.SetLeaf/Tree.SetChild, which
// path-copies and invalidates the whole ancestor chain (spec.md §4.1:
// "any child mutation on an ancestor path must invalidate caches on
// every ancestor"). Attaching c acquires a handle on it, per the
// data-model invariant "created with refcount 0; each parent
// attachment increments" (spec.md §3); replacing a live child releases
// the one being displaced.
func (n *InternalNode) SetChild(i int, c Node) error {
	if err := n.checkMutable(); err != nil {
		return err
	}
	if i < 0 || i >= len(n.children) {
		return &IllegalChildIndexError{Lo: 0, Hi: len(n.children) - 1, Got: i}
	}
	if c != nil {
		if err := c.Acquire(); err != nil {
			return err
		}
	}
	old := n.children[i]
	n.children[i] = c
	n.invalidate()
	if old != nil {
		if err := old.ReleaseHandle(); err != nil {
			panic(err)
		}
	}
	return nil
}

// ValidateChildCount is the exported form of validateChildCount, for
// callers outside this package (e.g. reconcile) that finish building a
// node's children incrementally rather than through ReadNode.
func (n *InternalNode) ValidateChildCount() error { return n.validateChildCount() }

// validateChildCount enforces the class/version's [min, max] bound
// (spec.md §3 Internal invariant; §4.3 "maximum child count is
// enforced").
func (n *InternalNode) validateChildCount() error {
	live := n.LiveChildCount()
	if live < n.minKids {
		return errNotEnoughChildren
	}
	if live > n.maxKids {
		return errTooManyChildren
	}
	return nil
}

// Hash computes digest(class_id || version || concat(child hashes)),
// substituting the canonical null sentinel for absent children
// (spec.md §4.1). It assumes all children's hashes are already valid;
// Rehash is what guarantees that bottom-up.
func (n *InternalNode) Hash(crypto hashing.Cryptographer) hashing.Hash {
	if h, ok := n.cachedHash(); ok {
		return h
	}
	buf := classVersionPrefix(n.classID, n.version)
	for _, c := range n.children {
		var ch hashing.Hash
		if c == nil {
			ch = hashing.Null
		} else {
			ch = c.Hash(crypto)
		}
		buf = append(buf, ch.Marshal()...)
	}
	h := crypto.Digest(buf)
	n.setCachedHash(h)
	return h
}

// Copy performs the fast-copy shallow clone: children are shared
// (refcount bumped), the node itself gets a fresh identity with
// refcount 0 (spec.md §4.1, glossary "Fast-copy"). The cached hash is
// preserved since nothing about the subtree changed yet.
func (n *InternalNode) Copy() Node {
	nb := n.copyBase()
	cp := &InternalNode{
		base:     nb,
		classID:  n.classID,
		version:  n.version,
		children: make([]Node, len(n.children)),
		minKids:  n.minKids,
		maxKids:  n.maxKids,
	}
	cp.onRelease = cp.release
	for i, c := range n.children {
		if c == nil {
			continue
		}
		if err := c.Acquire(); err != nil {
			// A child whose refcount is already released indicates a
			// tree invariant violation upstream; fail loudly rather
			// than silently drop the child.
			panic(err)
		}
		cp.children[i] = c
	}
	return cp
}

// release is InternalNode's on_release hook: release-handle every
// child, propagating the decrement (spec.md §4.1). A child's refcount
// can only reach 0 here if SetChild/ReadNode/Copy acquired it on
// attachment as required; a ReleaseHandle failure means that invariant
// was violated upstream, a refcount-misuse bug spec.md §4.3 classifies
// as fatal rather than recoverable.
func (n *InternalNode) release() {
	for _, c := range n.children {
		if c == nil {
			continue
		}
		if err := c.ReleaseHandle(); err != nil {
			panic(err)
		}
	}
}
