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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// ExternalSink receives the auxiliary bytes of leaves written in
// "external" mode, keyed by the leaf's route (spec.md §4.3). It lets a
// large-leaf payload live alongside the main stream instead of inline.
type ExternalSink interface {
	WriteExternal(route hashing.Route, data []byte) error
	ReadExternal(route hashing.Route) ([]byte, error)
}

// WriteNode serializes a single node as class_id ∥ version ∥ payload
// (spec.md §4.3). For an internal node, payload is its declared child
// count followed by one recursive frame per child (null children
// encode as NullClassID with no following bytes) — this is also the
// encoding WriteTree uses, since a node and the subtree rooted at it
// share the same recursive frame.
func WriteNode(w io.Writer, n Node, ext ExternalSink, route hashing.Route) error {
	if n == nil {
		return writeHeader(w, NullClassID, 0)
	}
	switch node := n.(type) {
	case *LeafNode:
		return writeLeaf(w, node, ext, route)
	case *InternalNode:
		return writeInternal(w, node, ext, route)
	default:
		return fmt.Errorf("merkle: unknown node implementation %T", n)
	}
}

func writeHeader(w io.Writer, classID uint64, version uint32) error {
	var hdr [12]byte
	hashing.PutUint64(hdr[0:8], classID)
	hashing.PutUint32(hdr[8:12], version)
	_, err := w.Write(hdr[:])
	return err
}

func writeLeaf(w io.Writer, n *LeafNode, ext ExternalSink, route hashing.Route) error {
	if err := writeHeader(w, n.ClassID(), n.Version()); err != nil {
		return err
	}
	payload, err := n.payload.SerializeSelf()
	if err != nil {
		return err
	}
	if data, ok := n.External(); ok && ext != nil {
		if err := ext.WriteExternal(route, data); err != nil {
			return err
		}
	}
	return writeBytes(w, payload)
}

func writeInternal(w io.Writer, n *InternalNode, ext ExternalSink, route hashing.Route) error {
	if err := writeHeader(w, n.ClassID(), n.Version()); err != nil {
		return err
	}
	var countBuf [4]byte
	hashing.PutUint32(countBuf[:], uint32(n.ChildCount()))
	if _, err := w.Write(countBuf[:]); err != nil {
		return err
	}
	for i := 0; i < n.ChildCount(); i++ {
		if err := WriteNode(w, n.Child(i), ext, route.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	hashing.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errTruncated, err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", errTruncated, err)
	}
	return buf, nil
}

// ReadNode is the recursive counterpart of WriteNode. It uses a
// bounded recursion (one stack frame per tree level) rather than the
// teacher's explicit partially-constructed-internal stack, since Go's
// call stack already gives us that bookkeeping for free; the behavior
// — read class_id, look up a constructor, read children until the
// declared count is reached, then finalize — matches spec.md §4.3.
func ReadNode(r io.Reader, reg *ClassRegistry, ext ExternalSink, route hashing.Route) (Node, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errTruncated, err)
	}
	classID := hashing.Uint64(hdr[0:8])
	version := hashing.Uint32(hdr[8:12])

	if classID == NullClassID {
		return nil, nil
	}

	if leafCtor, err := reg.leafCtor(classID); err == nil {
		payload, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		p, err := leafCtor(version, payload)
		if err != nil {
			return nil, err
		}
		leaf := NewLeaf(p)
		if ext != nil {
			if data, err := ext.ReadExternal(route); err == nil && data != nil {
				_ = leaf.SetExternal(data)
			}
		}
		return leaf, nil
	}

	internalCtor, err := reg.internalCtor(classID)
	if err != nil {
		return nil, fmt.Errorf("%w: class 0x%x version %d", errClassUnknown, classID, version)
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errTruncated, err)
	}
	declaredCount := int(hashing.Uint32(countBuf[:]))

	node, err := internalCtor(version, 0, declaredCount)
	if err != nil {
		return nil, err
	}
	for i := 0; i < declaredCount; i++ {
		child, err := ReadNode(r, reg, ext, route.Child(i))
		if err != nil {
			return nil, fmt.Errorf("merkle: reading child %d: %w", i, err)
		}
		if child == nil {
			continue
		}
		if err := node.SetChild(i, child); err != nil {
			return nil, err
		}
	}
	// finalize hook: application-specific post-construction
	// initialization once every child position has been read
	// (spec.md §4.3). Constructors that need one implement it inside
	// InternalConstructor itself, since Go has no separate virtual
	// "finalize" dispatch — the constructor already has everything it
	// needs to run it before returning.
	if err := node.validateChildCount(); err != nil {
		return nil, err
	}
	return node, nil
}

// WriteTree serializes root and every descendant in pre-order
// (spec.md §4.3, "whole-tree serialization").
func WriteTree(w io.Writer, root Node, ext ExternalSink) error {
	return WriteNode(w, root, ext, hashing.RootRoute())
}

// ReadTree is the counterpart of WriteTree.
func ReadTree(r io.Reader, reg *ClassRegistry, ext ExternalSink) (Node, error) {
	return ReadNode(r, reg, ext, hashing.RootRoute())
}
