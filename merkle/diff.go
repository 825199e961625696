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
	"io"
	"strings"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// DiffEntry reports one route at which two trees disagree.
type DiffEntry struct {
	Route hashing.Route
	Left  hashing.Hash
	Right hashing.Hash
}

// Diff compares two trees' hashes top-down, recursing only into
// mismatched subtrees, and returns one DiffEntry per leaf-level (or
// unresolvable) mismatch. Both trees must already be fully hashed
// (e.g. via Rehash) — Diff never computes a hash itself. This is the
// structural-diff tool named in spec.md §4.2; the same recursive
// "skip matching subtrees" logic is reused, in spirit, by the
// reconcile package's teacher/learner walk.
func Diff(crypto hashing.Cryptographer, a, b Node) []DiffEntry {
	var out []DiffEntry
	diffNode(crypto, a, b, hashing.RootRoute(), &out)
	return out
}

func diffNode(crypto hashing.Cryptographer, a, b Node, route hashing.Route, out *[]DiffEntry) {
	ah, bh := nodeHashOrNull(crypto, a), nodeHashOrNull(crypto, b)
	if ah.Equal(bh) {
		return
	}
	ain, aok := a.(*InternalNode)
	bin, bok := b.(*InternalNode)
	if !aok || !bok || ain.ChildCount() != bin.ChildCount() {
		*out = append(*out, DiffEntry{Route: route, Left: ah, Right: bh})
		return
	}
	for i := 0; i < ain.ChildCount(); i++ {
		diffNode(crypto, ain.Child(i), bin.Child(i), route.Child(i), out)
	}
}

func nodeHashOrNull(crypto hashing.Cryptographer, n Node) hashing.Hash {
	if n == nil {
		return hashing.Null
	}
	return n.Hash(crypto)
}

// Print writes a human-readable, indented dump of the tree rooted at n
// (spec.md §4.2, "debug printing"). Each node is printed with its
// Hash, so a node with no cached hash has it computed and cached.
func Print(w io.Writer, n Node, crypto hashing.Cryptographer) {
	printNode(w, n, crypto, 0)
}

func printNode(w io.Writer, n Node, crypto hashing.Cryptographer, depth int) {
	indent := strings.Repeat("  ", depth)
	if n == nil {
		fmt.Fprintf(w, "%s<empty>\n", indent)
		return
	}
	switch node := n.(type) {
	case *LeafNode:
		fmt.Fprintf(w, "%sLeaf class=0x%x version=%d hash=%s\n", indent, node.ClassID(), node.Version(), node.Hash(crypto))
	case *InternalNode:
		fmt.Fprintf(w, "%sInternal class=0x%x version=%d children=%d hash=%s\n", indent, node.ClassID(), node.Version(), node.LiveChildCount(), node.Hash(crypto))
		for i := 0; i < node.ChildCount(); i++ {
			printNode(w, node.Child(i), crypto, depth+1)
		}
	}
}
