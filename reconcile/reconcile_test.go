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
	"net"
	"testing"
	"time"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
	"github.com/hashgraph/hedera-platform-sub009/merkle"
)

const testLeafClass uint64 = 1
const testInternalClass uint64 = 100

type testPayload struct {
	version uint32
	data    []byte
}

func (p *testPayload) ClassID() uint64 { return testLeafClass }
func (p *testPayload) Version() uint32 { return p.version }
func (p *testPayload) SerializeSelf() ([]byte, error) {
	return append([]byte(nil), p.data...), nil
}

func testRegistry() *merkle.ClassRegistry {
	reg := merkle.NewClassRegistry()
	reg.RegisterLeaf(testLeafClass, func(version uint32, data []byte) (merkle.Payload, error) {
		return &testPayload{version: version, data: data}, nil
	})
	reg.RegisterInternal(testInternalClass, func(version uint32, minChildren, maxChildren int) (*merkle.InternalNode, error) {
		return merkle.NewInternal(testInternalClass, version, minChildren, maxChildren), nil
	})
	return reg
}

func leaf(b byte) *merkle.LeafNode {
	return merkle.NewLeaf(&testPayload{version: 1, data: []byte{b}})
}

func dialedPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	errCh := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			errCh <- err
			return
		}
		acceptCh <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	select {
	case server := <-acceptCh:
		return server, client
	case err := <-errCh:
		t.Fatal(err)
		return nil, nil
	case <-time.After(2 * time.Second):
		t.Fatal("timed out accepting test connection")
		return nil, nil
	}
}

// TestReconcileMinimalDiff reproduces spec.md §8 scenario 6 literally:
// teacher has {L1=α, L2=β}; learner has {L1=α, L2=γ}; after
// reconciliation the learner's L2 must read β, and L1 must never have
// crossed the wire as a payload.
func TestReconcileMinimalDiff(t *testing.T) {
	crypto := hashing.Default
	reg := testRegistry()

	teacherRoot := merkle.NewInternal(testInternalClass, 1, 0, 2)
	if err := teacherRoot.SetChild(0, leaf(0xA1)); err != nil {
		t.Fatal(err)
	}
	if err := teacherRoot.SetChild(1, leaf(0xB2)); err != nil {
		t.Fatal(err)
	}
	teacherTree := merkle.NewTree(teacherRoot, reg)
	if _, err := merkle.Rehash(teacherTree.Root(), crypto, merkle.RehashOptions{}); err != nil {
		t.Fatal(err)
	}

	learnerRoot := merkle.NewInternal(testInternalClass, 1, 0, 2)
	if err := learnerRoot.SetChild(0, leaf(0xA1)); err != nil {
		t.Fatal(err)
	}
	if err := learnerRoot.SetChild(1, leaf(0xC3)); err != nil {
		t.Fatal(err)
	}
	learnerTree := merkle.NewTree(learnerRoot, reg)
	if _, err := merkle.Rehash(learnerTree.Root(), crypto, merkle.RehashOptions{}); err != nil {
		t.Fatal(err)
	}

	teacherConn, learnerConn := dialedPair(t)
	defer teacherConn.Close()
	defer learnerConn.Close()

	teacher := NewTeacher(crypto, teacherTree, teacherConn)
	learner := NewLearner(crypto, reg, learnerTree, learnerConn)

	errCh := make(chan error, 2)
	go func() { errCh <- teacher.Run() }()
	go func() { errCh <- learner.Run() }()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errCh:
			if err != nil {
				t.Fatal(err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("reconciliation session timed out")
		}
	}

	gotRoot, ok := learnerTree.Root().(*merkle.InternalNode)
	if !ok {
		t.Fatalf("learner root is not an internal node: %T", learnerTree.Root())
	}
	gotL1, ok := gotRoot.Child(0).(*merkle.LeafNode)
	if !ok {
		t.Fatal("learner L1 missing or wrong type after reconciliation")
	}
	if string(gotL1.Payload().(*testPayload).data) != string([]byte{0xA1}) {
		t.Fatalf("learner L1 changed unexpectedly: %x", gotL1.Payload().(*testPayload).data)
	}
	gotL2, ok := gotRoot.Child(1).(*merkle.LeafNode)
	if !ok {
		t.Fatal("learner L2 missing or wrong type after reconciliation")
	}
	if string(gotL2.Payload().(*testPayload).data) != string([]byte{0xB2}) {
		t.Fatalf("learner L2 = %x, want b2 (teacher's value)", gotL2.Payload().(*testPayload).data)
	}

	teacherHash, err := merkle.Rehash(teacherTree.Root(), crypto, merkle.RehashOptions{})
	if err != nil {
		t.Fatal(err)
	}
	learnerHash, err := merkle.Rehash(learnerTree.Root(), crypto, merkle.RehashOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !teacherHash.Equal(learnerHash) {
		t.Fatal("learner tree root hash does not match teacher's after reconciliation")
	}
}

// TestReconcileIdenticalTreesFastPath exercises the root-hash handshake
// fast path: when both sides already agree, a single NodeIsUpToDate
// lesson ends the session with no further traffic.
func TestReconcileIdenticalTreesFastPath(t *testing.T) {
	crypto := hashing.Default
	reg := testRegistry()

	build := func() *merkle.Tree {
		root := merkle.NewInternal(testInternalClass, 1, 0, 2)
		if err := root.SetChild(0, leaf(0x01)); err != nil {
			t.Fatal(err)
		}
		if err := root.SetChild(1, leaf(0x02)); err != nil {
			t.Fatal(err)
		}
		tree := merkle.NewTree(root, reg)
		if _, err := merkle.Rehash(tree.Root(), crypto, merkle.RehashOptions{}); err != nil {
			t.Fatal(err)
		}
		return tree
	}

	teacherConn, learnerConn := dialedPair(t)
	defer teacherConn.Close()
	defer learnerConn.Close()

	teacher := NewTeacher(crypto, build(), teacherConn)
	learner := NewLearner(crypto, reg, build(), learnerConn)

	errCh := make(chan error, 2)
	go func() { errCh <- teacher.Run() }()
	go func() { errCh <- learner.Run() }()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errCh:
			if err != nil {
				t.Fatal(err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("reconciliation session timed out")
		}
	}
}

func TestLessonWireRoundTrip(t *testing.T) {
	r, w := net.Pipe()
	defer r.Close()
	defer w.Close()

	want := Lesson{
		Kind:        InternalData,
		Route:       hashing.RootRoute().Child(2).Child(0),
		ClassID:     testInternalClass,
		Version:     7,
		ChildHashes: []hashing.Hash{hashing.Default.Digest([]byte("a")), hashing.Null},
	}
	done := make(chan error, 1)
	go func() { done <- WriteLesson(w, want) }()

	got, err := ReadLesson(r)
	if err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got.Kind != want.Kind || got.ClassID != want.ClassID || got.Version != want.Version {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if !got.Route.Equal(want.Route) {
		t.Fatalf("route mismatch: got %s, want %s", got.Route, want.Route)
	}
	if len(got.ChildHashes) != len(want.ChildHashes) {
		t.Fatalf("child hash count mismatch: got %d, want %d", len(got.ChildHashes), len(want.ChildHashes))
	}
	for i := range want.ChildHashes {
		if !got.ChildHashes[i].Equal(want.ChildHashes[i]) {
			t.Fatalf("child hash %d mismatch", i)
		}
	}
}
