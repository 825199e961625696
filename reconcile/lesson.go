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
	"fmt"
	"io"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// LessonKind tags the four message shapes a teacher can send (spec.md
// §4.4).
type LessonKind uint8

const (
	// NodeIsUpToDate tells the learner its local subtree at Route
	// already matches; sent as the single-message fast path when the
	// two roots' hashes agree at handshake time.
	NodeIsUpToDate LessonKind = iota + 1
	// LeafData carries a leaf's full serialized payload.
	LeafData
	// InternalData carries an internal node's class/version plus one
	// child hash per declared child slot (hashing.Null for an absent
	// child). One Query follows from the learner per child.
	InternalData
	// CustomViewRoot hands a subtree to a pluggable ViewProvider
	// instead of the default structural diff.
	CustomViewRoot
)

func (k LessonKind) String() string {
	switch k {
	case NodeIsUpToDate:
		return "NODE_IS_UP_TO_DATE"
	case LeafData:
		return "LEAF_DATA"
	case InternalData:
		return "INTERNAL_DATA"
	case CustomViewRoot:
		return "CUSTOM_VIEW_ROOT"
	default:
		return fmt.Sprintf("LessonKind(%d)", uint8(k))
	}
}

// Lesson is the single wire message type the teacher sends (spec.md
// §4.4). Which fields are meaningful depends on Kind.
type Lesson struct {
	Kind    LessonKind
	Route   hashing.Route
	ClassID uint64
	Version uint32

	// ChildHashes is populated for InternalData: one entry per
	// declared child slot.
	ChildHashes []hashing.Hash

	// Payload is populated for LeafData: the leaf's self-serialized
	// bytes. A LeafData lesson whose ClassID is merkle.NullClassID
	// marks an absent child (the teacher's corresponding slot is nil).
	Payload []byte

	// ViewID and ViewData are populated for CustomViewRoot.
	ViewID   uint64
	ViewData []byte
}

// Query is the learner's one-bit reply to a single child hash named in
// an InternalData lesson (spec.md §4.4). Queries are sent in the same
// order the teacher listed children, and the teacher consumes them off
// a FIFO queue of pending child positions — there is no message
// identifier tying a Query back to its child index.
type Query struct {
	Have bool
}

func writeRoute(w io.Writer, r hashing.Route) error {
	var depthBuf [4]byte
	hashing.PutUint32(depthBuf[:], uint32(r.Depth()))
	if _, err := w.Write(depthBuf[:]); err != nil {
		return err
	}
	for d := 0; d < r.Depth(); d++ {
		var idxBuf [4]byte
		hashing.PutUint32(idxBuf[:], uint32(r.Index(d)))
		if _, err := w.Write(idxBuf[:]); err != nil {
			return err
		}
	}
	return nil
}

func readRoute(r io.Reader) (hashing.Route, error) {
	var depthBuf [4]byte
	if _, err := io.ReadFull(r, depthBuf[:]); err != nil {
		return hashing.Route{}, err
	}
	depth := hashing.Uint32(depthBuf[:])
	route := hashing.RootRoute()
	for d := uint32(0); d < depth; d++ {
		var idxBuf [4]byte
		if _, err := io.ReadFull(r, idxBuf[:]); err != nil {
			return hashing.Route{}, err
		}
		route = route.Child(int(hashing.Uint32(idxBuf[:])))
	}
	return route, nil
}

func writeBlob(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	hashing.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBlob(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := hashing.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteLesson serializes l to w.
func WriteLesson(w io.Writer, l Lesson) error {
	if _, err := w.Write([]byte{byte(l.Kind)}); err != nil {
		return err
	}
	if err := writeRoute(w, l.Route); err != nil {
		return err
	}
	switch l.Kind {
	case NodeIsUpToDate:
		return nil
	case LeafData:
		var hdr [12]byte
		hashing.PutUint64(hdr[0:8], l.ClassID)
		hashing.PutUint32(hdr[8:12], l.Version)
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		return writeBlob(w, l.Payload)
	case InternalData:
		var hdr [12]byte
		hashing.PutUint64(hdr[0:8], l.ClassID)
		hashing.PutUint32(hdr[8:12], l.Version)
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		var countBuf [4]byte
		hashing.PutUint32(countBuf[:], uint32(len(l.ChildHashes)))
		if _, err := w.Write(countBuf[:]); err != nil {
			return err
		}
		for _, h := range l.ChildHashes {
			if _, err := w.Write(h.Marshal()); err != nil {
				return err
			}
		}
		return nil
	case CustomViewRoot:
		var idBuf [8]byte
		hashing.PutUint64(idBuf[:], l.ViewID)
		if _, err := w.Write(idBuf[:]); err != nil {
			return err
		}
		return writeBlob(w, l.ViewData)
	default:
		return fmt.Errorf("reconcile: unknown lesson kind %d", l.Kind)
	}
}

// ReadLesson is the counterpart of WriteLesson.
func ReadLesson(r io.Reader) (Lesson, error) {
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return Lesson{}, err
	}
	l := Lesson{Kind: LessonKind(kindBuf[0])}
	route, err := readRoute(r)
	if err != nil {
		return Lesson{}, err
	}
	l.Route = route

	switch l.Kind {
	case NodeIsUpToDate:
		return l, nil
	case LeafData:
		var hdr [12]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return Lesson{}, err
		}
		l.ClassID = hashing.Uint64(hdr[0:8])
		l.Version = hashing.Uint32(hdr[8:12])
		payload, err := readBlob(r)
		if err != nil {
			return Lesson{}, err
		}
		l.Payload = payload
		return l, nil
	case InternalData:
		var hdr [12]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return Lesson{}, err
		}
		l.ClassID = hashing.Uint64(hdr[0:8])
		l.Version = hashing.Uint32(hdr[8:12])
		var countBuf [4]byte
		if _, err := io.ReadFull(r, countBuf[:]); err != nil {
			return Lesson{}, err
		}
		count := hashing.Uint32(countBuf[:])
		hashes := make([]hashing.Hash, count)
		for i := range hashes {
			var hb [1 + hashing.Size]byte
			if _, err := io.ReadFull(r, hb[:]); err != nil {
				return Lesson{}, err
			}
			h, _, err := hashing.Unmarshal(hb[:])
			if err != nil {
				return Lesson{}, err
			}
			hashes[i] = h
		}
		l.ChildHashes = hashes
		return l, nil
	case CustomViewRoot:
		var idBuf [8]byte
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return Lesson{}, err
		}
		l.ViewID = hashing.Uint64(idBuf[:])
		data, err := readBlob(r)
		if err != nil {
			return Lesson{}, err
		}
		l.ViewData = data
		return l, nil
	default:
		return Lesson{}, fmt.Errorf("reconcile: unknown lesson kind %d on wire", l.Kind)
	}
}

// WriteQuery serializes a Query as a single byte.
func WriteQuery(w io.Writer, q Query) error {
	b := byte(0)
	if q.Have {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

// ReadQuery is the counterpart of WriteQuery.
func ReadQuery(r io.Reader) (Query, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Query{}, err
	}
	return Query{Have: b[0] == 1}, nil
}
