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
	"time"

	"github.com/rs/zerolog"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
	"github.com/hashgraph/hedera-platform-sub009/merkle"
)

// Learner is the catching-up side of a reconciliation session. It owns
// a (possibly empty) local Tree and replaces it with one that matches
// the teacher's, requesting full payloads only where hashes disagree
// (spec.md §4.4).
type Learner struct {
	Crypto      hashing.Cryptographer
	Registry    *merkle.ClassRegistry
	Tree        *merkle.Tree
	Views       map[uint64]ViewProvider
	QueueDepth  int
	ReadTimeout time.Duration
	Logger      zerolog.Logger

	w      io.Writer
	r      io.Reader
	closer io.Closer
}

// NewLearner returns a Learner ready to run a session over rw. If rw
// also implements io.Closer, a cancelled session force-closes it to
// unblock any read the reader goroutine is blocked in.
func NewLearner(crypto hashing.Cryptographer, reg *merkle.ClassRegistry, tree *merkle.Tree, rw io.ReadWriter) *Learner {
	l := &Learner{Crypto: crypto, Registry: reg, Tree: tree, w: rw, r: rw, ReadTimeout: 30 * time.Second}
	if c, ok := rw.(io.Closer); ok {
		l.closer = c
	}
	return l
}

// Run drives the learner side of one session to completion, replacing
// l.Tree's root only on full success. On any error the tree is left
// unchanged (spec.md §7).
func (l *Learner) Run() error {
	localRoot := hashing.Null
	if l.Tree.Root() != nil {
		localRoot = l.Tree.Root().Hash(l.Crypto)
	}
	if _, err := l.w.Write(localRoot.Marshal()); err != nil {
		return &ReconciliationError{Route: "/", Err: err}
	}
	var peerBuf [1 + hashing.Size]byte
	if _, err := io.ReadFull(l.r, peerBuf[:]); err != nil {
		return &ReconciliationError{Route: "/", Err: err}
	}
	peerRoot, _, err := hashing.Unmarshal(peerBuf[:])
	if err != nil {
		return &ReconciliationError{Route: "/", Err: err}
	}

	if localRoot.Equal(peerRoot) {
		lesson, err := ReadLesson(l.r)
		if err != nil {
			return &ReconciliationError{Route: "/", Err: err}
		}
		if lesson.Kind != NodeIsUpToDate {
			return &ReconciliationError{Route: "/", Err: errUnexpectedMsg}
		}
		l.Logger.Debug().Msg("roots already matched, nothing to transfer")
		return nil
	}

	pr := newPipelineReader(l.r, l.QueueDepth)
	newRoot, err := l.learn(pr, hashing.RootRoute(), l.Tree.Root())
	if err != nil {
		l.abort(pr)
		return err
	}
	pr.cancel()
	return l.Tree.ReplaceRoot(newRoot)
}

// abort force-closes the underlying stream first, so that a reader
// goroutine already blocked inside a Read call unblocks with an error,
// and only then cancels and drains the pipeline — reversing this order
// would leave cancel's drain waiting on a read that nothing is there to
// interrupt (spec.md §4.4, "Cancellation").
func (l *Learner) abort(pr *pipelineReader) {
	if l.closer != nil {
		_ = l.closer.Close()
	}
	pr.cancel()
}

func (l *Learner) fail(route hashing.Route, err error) error {
	return &ReconciliationError{Route: route.String(), Err: err}
}

func (l *Learner) viewFor(viewID uint64) (ViewProvider, bool) {
	if l.Views == nil {
		return nil, false
	}
	v, ok := l.Views[viewID]
	return v, ok
}

// learn fetches and applies the single Lesson the teacher owes for
// route, recursing into children the local copy disagrees with.
func (l *Learner) learn(pr *pipelineReader, route hashing.Route, local merkle.Node) (merkle.Node, error) {
	pr.anticipate()
	lesson, err := pr.next(l.ReadTimeout)
	if err != nil {
		return nil, l.fail(route, err)
	}

	switch lesson.Kind {
	case NodeIsUpToDate:
		return local, nil

	case LeafData:
		if lesson.ClassID == merkle.NullClassID {
			return nil, nil
		}
		leaf, err := l.Registry.ConstructLeaf(lesson.ClassID, lesson.Version, lesson.Payload)
		if err != nil {
			return nil, l.fail(route, err)
		}
		return leaf, nil

	case CustomViewRoot:
		view, ok := l.viewFor(lesson.ViewID)
		if !ok {
			return nil, l.fail(route, errNoView)
		}
		imported, err := view.Import(route, lesson.ViewData)
		if err != nil {
			return nil, l.fail(route, err)
		}
		node, ok := imported.(merkle.Node)
		if !ok {
			return nil, l.fail(route, errUnexpectedMsg)
		}
		return node, nil

	case InternalData:
		return l.learnInternal(pr, route, local, lesson)

	default:
		return nil, l.fail(route, errUnexpectedMsg)
	}
}

func (l *Learner) learnInternal(pr *pipelineReader, route hashing.Route, local merkle.Node, lesson Lesson) (merkle.Node, error) {
	node, err := l.Registry.ConstructInternal(lesson.ClassID, lesson.Version, len(lesson.ChildHashes))
	if err != nil {
		return nil, l.fail(route, err)
	}
	localIn, _ := local.(*merkle.InternalNode)

	for i, wantHash := range lesson.ChildHashes {
		childRoute := route.Child(i)

		var localChild merkle.Node
		localHash := hashing.Null
		if localIn != nil {
			localChild = localIn.Child(i)
			if localChild != nil {
				localHash = localChild.Hash(l.Crypto)
			}
		}
		have := localHash.Equal(wantHash)
		if err := WriteQuery(l.w, Query{Have: have}); err != nil {
			return nil, l.fail(childRoute, err)
		}

		var childNode merkle.Node
		if have {
			childNode = localChild
		} else {
			childNode, err = l.learn(pr, childRoute, localChild)
			if err != nil {
				return nil, err
			}
		}
		if childNode == nil {
			continue
		}
		if err := node.SetChild(i, childNode); err != nil {
			return nil, l.fail(childRoute, err)
		}
	}

	if err := node.ValidateChildCount(); err != nil {
		return nil, l.fail(route, err)
	}
	return node, nil
}
