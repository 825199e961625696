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
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

const testLeafClassID uint64 = 1

type bytesPayload struct {
	version uint32
	data    []byte
}

func (p *bytesPayload) ClassID() uint64 { return testLeafClassID }
func (p *bytesPayload) Version() uint32 { return p.version }
func (p *bytesPayload) SerializeSelf() ([]byte, error) {
	return append([]byte(nil), p.data...), nil
}

func newBytesLeaf(b byte) *LeafNode {
	return NewLeaf(&bytesPayload{version: 1, data: []byte{b}})
}

// TestBinaryTreeHash reproduces spec.md §8 scenario 1 literally.
func TestBinaryTreeHash(t *testing.T) {
	crypto := hashing.Default

	l1 := newBytesLeaf(0x01)
	l2 := newBytesLeaf(0x02)
	root := NewInternal(100, 1, 0, 2)
	if err := root.SetChild(0, l1); err != nil {
		t.Fatal(err)
	}
	if err := root.SetChild(1, l2); err != nil {
		t.Fatal(err)
	}

	got, err := Rehash(root, crypto, RehashOptions{})
	if err != nil {
		t.Fatal(err)
	}

	h1 := crypto.Digest(append(classVersionPrefix(testLeafClassID, 1), 0x01))
	h2 := crypto.Digest(append(classVersionPrefix(testLeafClassID, 1), 0x02))
	want := crypto.Digest(append(classVersionPrefix(100, 1), append(h1.Marshal(), h2.Marshal()...)...))

	if !got.Equal(want) {
		t.Fatalf("root hash mismatch:\ngot  %s\nwant %s\n%s", got, want, spew.Sdump(root))
	}

	// Replacing L2's payload with the same bytes must not change the
	// root hash.
	if err := l2.SetPayload(&bytesPayload{version: 1, data: []byte{0x02}}); err != nil {
		t.Fatal(err)
	}
	root.invalidate()
	got2, err := Rehash(root, crypto, RehashOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !got2.Equal(want) {
		t.Fatal("same-bytes payload replacement must not change the root hash")
	}

	// Replacing with different bytes must change the root hash.
	if err := l2.SetPayload(&bytesPayload{version: 1, data: []byte{0x03}}); err != nil {
		t.Fatal(err)
	}
	root.invalidate()
	got3, err := Rehash(root, crypto, RehashOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got3.Equal(want) {
		t.Fatal("different payload bytes must change the root hash")
	}
}

func TestFastCopyLeavesOriginalUnaffected(t *testing.T) {
	crypto := hashing.Default
	root := NewInternal(100, 1, 0, 2)
	if err := root.SetChild(0, newBytesLeaf(0x01)); err != nil {
		t.Fatal(err)
	}
	if err := root.SetChild(1, newBytesLeaf(0x02)); err != nil {
		t.Fatal(err)
	}
	tree := NewTree(root, nil)
	before, err := Rehash(tree.Root(), crypto, RehashOptions{})
	if err != nil {
		t.Fatal(err)
	}

	cp := tree.FastCopy()
	if err := cp.SetLeaf(hashing.RootRoute(), 1, &bytesPayload{version: 1, data: []byte{0xff}}); err != nil {
		t.Fatal(err)
	}
	after, err := Rehash(tree.Root(), crypto, RehashOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !before.Equal(after) {
		t.Fatal("mutating a fast-copy must not change the original's root hash")
	}

	cpHash, err := Rehash(cp.Root(), crypto, RehashOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if cpHash.Equal(before) {
		t.Fatal("the copy's hash should differ after its own mutation")
	}
}

func TestRefCountStateMachine(t *testing.T) {
	l := newBytesLeaf(0x01)
	if l.RefCount() != 0 {
		t.Fatalf("new node should start at refcount 0, got %d", l.RefCount())
	}
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}
	if l.RefCount() != 1 {
		t.Fatalf("expected refcount 1, got %d", l.RefCount())
	}
	if err := l.ExplicitRelease(); err == nil {
		t.Fatal("explicit_release must fail when refcount != 0")
	}
	if err := l.ReleaseHandle(); err != nil {
		t.Fatal(err)
	}
	if l.RefCount() != 0 {
		t.Fatalf("expected refcount 0 after release, got %d", l.RefCount())
	}
	if err := l.ExplicitRelease(); err != nil {
		t.Fatal(err)
	}
	if l.RefCount() != -1 {
		t.Fatalf("expected refcount -1 after explicit_release, got %d", l.RefCount())
	}
	if err := l.Acquire(); err == nil {
		t.Fatal("acquire on a released node must fail")
	}
}

func TestRouteConflictRequiresFastCopy(t *testing.T) {
	l := newBytesLeaf(0x01)
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := l.SetRoute(hashing.RootRoute().Child(0)); err == nil {
		t.Fatal("set_route on a node with refcount > 1 must fail with RouteConflictError")
	}
}

// TestSetChildAcquiresAndTreeReleaseUnwinds reproduces the scenario from
// spec.md §4.1: a child attached once via SetChild, then shared a second
// time by fast-copying its parent, must report refcount 2 — and a plain
// Tree.Release() on an ordinarily-built tree must actually unwind every
// child's refcount to 0, not silently no-op.
func TestSetChildAcquiresAndTreeReleaseUnwinds(t *testing.T) {
	leaf := newBytesLeaf(0x01)
	if leaf.RefCount() != 0 {
		t.Fatalf("new leaf should start at refcount 0, got %d", leaf.RefCount())
	}

	root := NewInternal(100, 1, 0, 2)
	if err := root.SetChild(0, leaf); err != nil {
		t.Fatal(err)
	}
	if leaf.RefCount() != 1 {
		t.Fatalf("expected refcount 1 after a single SetChild attachment, got %d", leaf.RefCount())
	}

	tree := NewTree(root, NewClassRegistry())
	snapshot := tree.FastCopy()

	if leaf.RefCount() != 2 {
		t.Fatalf("expected refcount 2 after fast-copy shares the attachment, got %d", leaf.RefCount())
	}
	if err := leaf.SetRoute(hashing.RootRoute().Child(0)); err == nil {
		t.Fatal("set_route on a leaf shared by two parents must fail with RouteConflictError")
	}

	if err := snapshot.Release(); err != nil {
		t.Fatal(err)
	}
	if leaf.RefCount() != 1 {
		t.Fatalf("expected refcount 1 after releasing the fast-copy snapshot, got %d", leaf.RefCount())
	}

	if err := tree.Release(); err != nil {
		t.Fatal(err)
	}
	if leaf.RefCount() != 0 {
		t.Fatalf("expected refcount 0 after releasing the original tree, got %d", leaf.RefCount())
	}
}
