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

package hashing

import "testing"

func TestRouteOrderAndAncestry(t *testing.T) {
	root := RootRoute()
	a := root.Child(0)
	b := root.Child(1)
	a0 := a.Child(0)

	if !root.IsAncestorOf(a) {
		t.Fatal("root should be ancestor of every route")
	}
	if !a.IsAncestorOf(a0) {
		t.Fatal("a should be ancestor of a0")
	}
	if a.IsAncestorOf(b) {
		t.Fatal("siblings are not ancestors of each other")
	}
	if a0.IsAncestorOf(a) {
		t.Fatal("descendant cannot be ancestor of its own ancestor")
	}

	if root.Compare(a) >= 0 {
		t.Fatal("root must sort before any non-root route")
	}
	if a.Compare(a0) >= 0 {
		t.Fatal("a prefix must sort before its extension")
	}
	if a.Compare(b) >= 0 {
		t.Fatal("child 0 must sort before child 1")
	}
}

func TestRouteParentRoundTrip(t *testing.T) {
	r := RootRoute().Child(3).Child(7)
	p, ok := r.Parent()
	if !ok || p.Depth() != 1 || p.Index(0) != 3 {
		t.Fatalf("unexpected parent %v ok=%v", p, ok)
	}
	root, ok := p.Parent()
	if !ok || !root.IsRoot() {
		t.Fatalf("expected root parent, got %v ok=%v", root, ok)
	}
	if _, ok := root.Parent(); ok {
		t.Fatal("root route must have no parent")
	}
}

func TestHashNullSentinel(t *testing.T) {
	if !Null.IsNull() {
		t.Fatal("Null must report IsNull")
	}
	h := Default.Digest([]byte("leaf"))
	if h.IsNull() {
		t.Fatal("a real digest must not equal the null sentinel")
	}
	b := h.Marshal()
	h2, rest, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no trailing bytes, got %d", len(rest))
	}
	if !h.Equal(h2) {
		t.Fatal("round-trip through Marshal/Unmarshal must be the identity")
	}
}
