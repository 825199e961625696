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
	"context"
	"math/rand"
)

// Order selects one of the four traversal orders named in spec.md §4.2.
type Order int

const (
	// PostDepth visits children before their parent, in child-index
	// order. This is the default order (used by Rehash).
	PostDepth Order = iota
	// PostDepthRandomized is PostDepth with sibling order permuted by
	// a caller-supplied seed, for reproducible randomized testing.
	PostDepthRandomized
	// PreDepth visits a node before its children.
	PreDepth
	// Breadth visits nodes level by level.
	Breadth
)

// Iterator produces a finite, cancellable sequence of node references
// starting from a given root, restartable by constructing a new
// Iterator over the same root (spec.md §4.2).
type Iterator struct {
	ch     chan Node
	cancel context.CancelFunc
}

// NewIterator starts a traversal of root in the given order. seed only
// matters for PostDepthRandomized; it is ignored otherwise.
func NewIterator(root Node, order Order, seed int64) *Iterator {
	ctx, cancel := context.WithCancel(context.Background())
	it := &Iterator{ch: make(chan Node), cancel: cancel}
	go func() {
		defer close(it.ch)
		switch order {
		case PostDepth:
			walkPost(ctx, root, it.ch, nil)
		case PostDepthRandomized:
			r := rand.New(rand.NewSource(seed))
			walkPost(ctx, root, it.ch, r)
		case PreDepth:
			walkPre(ctx, root, it.ch)
		case Breadth:
			walkBreadth(ctx, root, it.ch)
		}
	}()
	return it
}

// Next blocks for the next node, returning (nil, false) once the
// traversal is exhausted or ctx is done.
func (it *Iterator) Next(ctx context.Context) (Node, bool) {
	select {
	case n, ok := <-it.ch:
		return n, ok
	case <-ctx.Done():
		it.Cancel()
		return nil, false
	}
}

// Cancel stops the traversal early; safe to call multiple times.
func (it *Iterator) Cancel() { it.cancel() }

func childOrder(n *InternalNode, r *rand.Rand) []int {
	order := make([]int, n.ChildCount())
	for i := range order {
		order[i] = i
	}
	if r != nil {
		r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

func walkPost(ctx context.Context, n Node, out chan<- Node, r *rand.Rand) bool {
	if n == nil {
		return true
	}
	if in, ok := n.(*InternalNode); ok {
		for _, i := range childOrder(in, r) {
			if !walkPost(ctx, in.Child(i), out, r) {
				return false
			}
		}
	}
	select {
	case out <- n:
		return true
	case <-ctx.Done():
		return false
	}
}

func walkPre(ctx context.Context, n Node, out chan<- Node) bool {
	if n == nil {
		return true
	}
	select {
	case out <- n:
	case <-ctx.Done():
		return false
	}
	if in, ok := n.(*InternalNode); ok {
		for i := 0; i < in.ChildCount(); i++ {
			if !walkPre(ctx, in.Child(i), out) {
				return false
			}
		}
	}
	return true
}

func walkBreadth(ctx context.Context, root Node, out chan<- Node) {
	if root == nil {
		return
	}
	queue := []Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == nil {
			continue
		}
		select {
		case out <- n:
		case <-ctx.Done():
			return
		}
		if in, ok := n.(*InternalNode); ok {
			for i := 0; i < in.ChildCount(); i++ {
				queue = append(queue, in.Child(i))
			}
		}
	}
}

// Collect drains it into a slice; intended for tests and small trees.
func Collect(it *Iterator) []Node {
	var out []Node
	ctx := context.Background()
	for {
		n, ok := it.Next(ctx)
		if !ok {
			return out
		}
		out = append(out, n)
	}
}
