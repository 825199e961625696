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

// LeafNode carries an application payload that knows how to serialize
// itself (spec.md §3, Leaf). Setting the payload invalidates the
// cached hash.
type LeafNode struct {
	base
	payload Payload

	// external holds auxiliary bytes written to a side stream instead
	// of the main serialized stream (spec.md §4.3, "external" mode).
	// It is nil unless the leaf opted into external storage.
	external []byte
}

// NewLeaf wraps a payload in a fresh, unowned (refcount 0) leaf.
func NewLeaf(payload Payload) *LeafNode {
	return &LeafNode{payload: payload}
}

func (n *LeafNode) ClassID() uint64 { return n.payload.ClassID() }
func (n *LeafNode) Version() uint32 { return n.payload.Version() }

// Payload returns the leaf's application value.
func (n *LeafNode) Payload() Payload { return n.payload }

// SetPayload replaces the leaf's value, invalidating the cached hash
// on this node; the caller is responsible for invalidating ancestors
// (normally done by InternalNode.SetChild).
func (n *LeafNode) SetPayload(p Payload) error {
	if err := n.checkMutable(); err != nil {
		return err
	}
	n.payload = p
	n.invalidate()
	return nil
}

// External returns the leaf's side-stream payload and whether it is
// set at all.
func (n *LeafNode) External() ([]byte, bool) { return n.external, n.external != nil }

// SetExternal attaches (or clears, with nil) the leaf's side-stream
// payload. It does not affect the leaf's hash: the external bytes are
// an out-of-band convenience, not part of the digest input.
func (n *LeafNode) SetExternal(data []byte) error {
	if err := n.checkMutable(); err != nil {
		return err
	}
	n.external = data
	return nil
}

// Hash computes digest(class_id || version || self_serialize(leaf))
// on first access and caches it (spec.md §4.1).
func (n *LeafNode) Hash(crypto hashing.Cryptographer) hashing.Hash {
	if h, ok := n.cachedHash(); ok {
		return h
	}
	payload, err := n.payload.SerializeSelf()
	if err != nil {
		// Hashing a leaf whose payload cannot serialize is a
		// programmer error at the call site that built the payload;
		// the contract here (like the teacher's Hash()) is total.
		panic(err)
	}
	buf := classVersionPrefix(n.payload.ClassID(), n.payload.Version())
	buf = append(buf, payload...)
	h := crypto.Digest(buf)
	n.setCachedHash(h)
	return h
}

// Copy returns a deep copy of the leaf: unlike an internal node, a
// leaf has no children to share, so fast-copy and deep-copy coincide.
// The copy starts with refcount 0 and is mutable.
func (n *LeafNode) Copy() Node {
	nb := n.copyBase()
	cp := &LeafNode{base: nb, payload: n.payload}
	if n.external != nil {
		cp.external = append([]byte(nil), n.external...)
	}
	return cp
}

func classVersionPrefix(classID uint64, version uint32) []byte {
	buf := make([]byte, 12)
	hashing.PutUint64(buf[0:8], classID)
	hashing.PutUint32(buf[8:12], version)
	return buf
}
