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

import "fmt"

// NullClassID is the reserved class_id that decodes as an absent
// object regardless of any following bytes (spec.md §6, §8).
const NullClassID uint64 = 0x0

// Payload is the capability an application leaf value must implement
// to be stored in a LeafNode: it self-serializes and declares the
// class_id/version pair the registry uses to find its constructor back
// (spec.md §4.3).
type Payload interface {
	ClassID() uint64
	Version() uint32
	SerializeSelf() ([]byte, error)
}

// PayloadConstructor builds a Payload of a known class/version from
// its serialized bytes.
type PayloadConstructor func(version uint32, data []byte) (Payload, error)

// InternalConstructor builds the application-specific wrapper around a
// freshly-deserialized InternalNode, running whatever "finalize" logic
// the application needs once all of the node's children are known
// (spec.md §4.3, "finalize hook").
type InternalConstructor func(version uint32, minChildren, maxChildren int) (*InternalNode, error)

// ClassRegistry is the explicit, caller-owned class_id -> constructor
// table threaded through (de)serialization calls. spec.md §9 calls out
// the teacher's global registry pattern for re-architecture: this type
// is never a package-level global, it is always passed in by the
// caller (WriteTree/ReadTree, WriteNode/ReadNode).
type ClassRegistry struct {
	leaves     map[uint64]PayloadConstructor
	internals  map[uint64]InternalConstructor
}

// NewClassRegistry returns an empty registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		leaves:    make(map[uint64]PayloadConstructor),
		internals: make(map[uint64]InternalConstructor),
	}
}

// RegisterLeaf associates a class_id with a leaf payload constructor.
func (r *ClassRegistry) RegisterLeaf(classID uint64, ctor PayloadConstructor) {
	r.leaves[classID] = ctor
}

// RegisterInternal associates a class_id with an internal-node
// constructor.
func (r *ClassRegistry) RegisterInternal(classID uint64, ctor InternalConstructor) {
	r.internals[classID] = ctor
}

// ConstructLeaf looks up classID's payload constructor, builds the
// payload from data, and wraps it in a fresh LeafNode. Exported for
// callers outside this package (e.g. reconcile) that rebuild nodes from
// a wire message rather than a byte stream read via ReadNode.
func (r *ClassRegistry) ConstructLeaf(classID uint64, version uint32, data []byte) (*LeafNode, error) {
	ctor, err := r.leafCtor(classID)
	if err != nil {
		return nil, err
	}
	p, err := ctor(version, data)
	if err != nil {
		return nil, err
	}
	return NewLeaf(p), nil
}

// ConstructInternal looks up classID's internal-node constructor and
// builds an empty node with capacity for declaredCount children.
func (r *ClassRegistry) ConstructInternal(classID uint64, version uint32, declaredCount int) (*InternalNode, error) {
	ctor, err := r.internalCtor(classID)
	if err != nil {
		return nil, err
	}
	return ctor(version, 0, declaredCount)
}

func (r *ClassRegistry) leafCtor(classID uint64) (PayloadConstructor, error) {
	c, ok := r.leaves[classID]
	if !ok {
		return nil, fmt.Errorf("%w: leaf class 0x%x", errClassUnknown, classID)
	}
	return c, nil
}

func (r *ClassRegistry) internalCtor(classID uint64) (InternalConstructor, error) {
	c, ok := r.internals[classID]
	if !ok {
		return nil, fmt.Errorf("%w: internal class 0x%x", errClassUnknown, classID)
	}
	return c, nil
}
