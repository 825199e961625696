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

package reconcile

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
	"github.com/hashgraph/hedera-platform-sub009/merkle"
)

// Teacher is the authoritative side of a reconciliation session: it
// holds up-to-date state and answers the learner's have/need queries
// (spec.md §4.4).
type Teacher struct {
	Crypto hashing.Cryptographer
	Tree   *merkle.Tree
	Views  map[uint64]ViewProvider
	Logger zerolog.Logger

	w io.Writer
	r io.Reader
}

// NewTeacher returns a Teacher ready to serve a session over the given
// duplex stream.
func NewTeacher(crypto hashing.Cryptographer, tree *merkle.Tree, rw io.ReadWriter) *Teacher {
	return &Teacher{Crypto: crypto, Tree: tree, w: rw, r: rw}
}

// Run drives the teacher side of one reconciliation session to
// completion. It first exchanges root hashes; if they already agree it
// sends a single NodeIsUpToDate lesson and returns. Otherwise it walks
// the tree, recursing only into children the learner reports as
// "need" (spec.md §4.4 algorithm).
func (t *Teacher) Run() error {
	rootHash := t.Tree.Root().Hash(t.Crypto)
	if _, err := t.w.Write(rootHash.Marshal()); err != nil {
		return &ReconciliationError{Route: "/", Err: err}
	}
	var peerBuf [1 + hashing.Size]byte
	if _, err := io.ReadFull(t.r, peerBuf[:]); err != nil {
		return &ReconciliationError{Route: "/", Err: err}
	}
	peerRoot, _, err := hashing.Unmarshal(peerBuf[:])
	if err != nil {
		return &ReconciliationError{Route: "/", Err: err}
	}

	if rootHash.Equal(peerRoot) {
		t.Logger.Debug().Msg("roots already match, sending fast-path lesson")
		if err := WriteLesson(t.w, Lesson{Kind: NodeIsUpToDate, Route: hashing.RootRoute()}); err != nil {
			return &ReconciliationError{Route: "/", Err: err}
		}
		return nil
	}

	return t.teach(hashing.RootRoute(), t.Tree.Root())
}

func (t *Teacher) teach(route hashing.Route, n merkle.Node) error {
	if n != nil && n.Archived() {
		return &ReconciliationError{Route: route.String(), Err: ErrArchived}
	}
	switch node := n.(type) {
	case nil:
		return t.sendAbsent(route)
	case *merkle.LeafNode:
		return t.sendLeaf(route, node)
	case *merkle.InternalNode:
		if view, ok := t.viewFor(node.ClassID()); ok {
			return t.sendCustomView(route, node, view)
		}
		return t.sendInternal(route, node)
	default:
		return &ReconciliationError{Route: route.String(), Err: errUnexpectedMsg}
	}
}

func (t *Teacher) viewFor(classID uint64) (ViewProvider, bool) {
	if t.Views == nil {
		return nil, false
	}
	v, ok := t.Views[classID]
	return v, ok
}

func (t *Teacher) sendAbsent(route hashing.Route) error {
	l := Lesson{Kind: LeafData, Route: route, ClassID: merkle.NullClassID}
	if err := WriteLesson(t.w, l); err != nil {
		return &ReconciliationError{Route: route.String(), Err: err}
	}
	return nil
}

func (t *Teacher) sendLeaf(route hashing.Route, n *merkle.LeafNode) error {
	payload, err := n.Payload().SerializeSelf()
	if err != nil {
		return &ReconciliationError{Route: route.String(), Err: err}
	}
	l := Lesson{Kind: LeafData, Route: route, ClassID: n.ClassID(), Version: n.Version(), Payload: payload}
	if err := WriteLesson(t.w, l); err != nil {
		return &ReconciliationError{Route: route.String(), Err: err}
	}
	return nil
}

func (t *Teacher) sendCustomView(route hashing.Route, n *merkle.InternalNode, view ViewProvider) error {
	data, err := view.Export(route, n)
	if err != nil {
		return &ReconciliationError{Route: route.String(), Err: err}
	}
	l := Lesson{Kind: CustomViewRoot, Route: route, ClassID: n.ClassID(), ViewID: n.ClassID(), ViewData: data}
	if err := WriteLesson(t.w, l); err != nil {
		return &ReconciliationError{Route: route.String(), Err: err}
	}
	return nil
}

// sendInternal sends the child hash list and then, for each child the
// learner reports "need" for, recurses and sends that child's own
// lesson. Child positions are processed strictly in order — the
// learner's FIFO query discipline depends on it (spec.md §4.4).
func (t *Teacher) sendInternal(route hashing.Route, n *merkle.InternalNode) error {
	hashes := make([]hashing.Hash, n.ChildCount())
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			hashes[i] = hashing.Null
		} else {
			hashes[i] = c.Hash(t.Crypto)
		}
	}
	l := Lesson{Kind: InternalData, Route: route, ClassID: n.ClassID(), Version: n.Version(), ChildHashes: hashes}
	if err := WriteLesson(t.w, l); err != nil {
		return &ReconciliationError{Route: route.String(), Err: err}
	}

	for i := 0; i < n.ChildCount(); i++ {
		q, err := ReadQuery(t.r)
		if err != nil {
			return &ReconciliationError{Route: route.Child(i).String(), Err: err}
		}
		if q.Have {
			continue
		}
		if err := t.teach(route.Child(i), n.Child(i)); err != nil {
			return err
		}
	}
	return nil
}
