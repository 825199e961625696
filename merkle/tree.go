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
	"fmt"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// Tree is a handle on a root Node plus the registry used to interpret
// it. It is the unit callers mutate, fast-copy, and serialize.
type Tree struct {
	root     Node
	Registry *ClassRegistry
}

// NewTree wraps an existing root node (refcount starts at 0, owned by
// this Tree) under the given registry.
func NewTree(root Node, reg *ClassRegistry) *Tree {
	return &Tree{root: root, Registry: reg}
}

// Root returns the tree's current root node.
func (t *Tree) Root() Node { return t.root }

// ReplaceRoot swaps in a wholly new root, releasing the previous one's
// handle first. Used by reconcile once a learner session has rebuilt a
// tree and needs to install it in place of the one being caught up.
func (t *Tree) ReplaceRoot(n Node) error {
	if t.root != nil {
		if err := t.root.ExplicitRelease(); err != nil {
			return err
		}
	}
	t.root = n
	return nil
}

// Release drops the tree's ownership of its root, running release
// hooks transitively (spec.md §4.1).
func (t *Tree) Release() error {
	if t.root == nil {
		return nil
	}
	return t.root.ExplicitRelease()
}

// FastCopy returns a new Tree sharing the same children as t's root
// (refcount bumped); t and the copy can then be mutated independently
// via SetLeaf/SetChild without affecting each other (spec.md §4.1,
// glossary "Fast-copy").
func (t *Tree) FastCopy() *Tree {
	root := t.root.Copy()
	return &Tree{root: root, Registry: t.Registry}
}

// walkPath resolves the chain of InternalNodes from the root down to
// (but not including) the node at route, returning them in root-first
// order. It fails if any intermediate node is not an *InternalNode or
// the route runs off the declared child count.
func (t *Tree) walkPath(route hashing.Route) ([]*InternalNode, []int, error) {
	path := make([]*InternalNode, 0, route.Depth())
	idx := make([]int, 0, route.Depth())
	cur := t.root
	for d := 0; d < route.Depth(); d++ {
		in, ok := cur.(*InternalNode)
		if !ok {
			return nil, nil, fmt.Errorf("merkle: route descends past a leaf at depth %d", d)
		}
		i := route.Index(d)
		if i < 0 || i >= in.ChildCount() {
			return nil, nil, &IllegalChildIndexError{Lo: 0, Hi: in.ChildCount() - 1, Got: i}
		}
		path = append(path, in)
		idx = append(idx, i)
		cur = in.Child(i)
		if cur == nil && d != route.Depth()-1 {
			return nil, nil, fmt.Errorf("merkle: route passes through an empty child at depth %d", d)
		}
	}
	return path, idx, nil
}

// SetChild replaces the node at route/childIndex with newChild,
// path-copying every ancestor on the way down so that any other Tree
// still sharing the old nodes is unaffected, and invalidating the
// cached hash on every node it touches (spec.md §4.1). route addresses
// the *parent* of the child being replaced; pass hashing.RootRoute()
// to replace a child of the tree root itself.
func (t *Tree) SetChild(route hashing.Route, childIndex int, newChild Node) error {
	path, idx, err := t.walkPath(route)
	if err != nil {
		return err
	}

	// Path-copy from the root down: replace every node on the path
	// with a fast-copy of itself, then mutate the copy. This leaves
	// any snapshot that still references the originals untouched.
	var newRoot Node
	if len(path) == 0 {
		root, ok := t.root.(*InternalNode)
		if !ok {
			return fmt.Errorf("merkle: tree root is not an internal node")
		}
		cp := root.Copy().(*InternalNode)
		if err := cp.SetChild(childIndex, newChild); err != nil {
			return err
		}
		newRoot = cp
	} else {
		copies := make([]*InternalNode, len(path))
		for i, n := range path {
			copies[i] = n.Copy().(*InternalNode)
		}
		for i := 0; i < len(copies)-1; i++ {
			if err := copies[i].SetChild(idx[i], copies[i+1]); err != nil {
				return err
			}
		}
		last := copies[len(copies)-1]
		if err := last.SetChild(idx[len(idx)-1], newChild); err != nil {
			return err
		}
		newRoot = copies[0]
	}

	t.root = newRoot
	return nil
}

// SetLeaf is a convenience wrapper around SetChild for the common case
// of writing an application payload at a route.
func (t *Tree) SetLeaf(parentRoute hashing.Route, childIndex int, payload Payload) error {
	return t.SetChild(parentRoute, childIndex, NewLeaf(payload))
}
