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

package objstream

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// ErrQueueCancelled is returned by OnObject once Cancel has been
// called, including for a send already blocked on a full queue (spec.md
// §4.8: "an interrupt sets a cancellation flag and re-raises").
var ErrQueueCancelled = errors.New("objstream: queue-thread stream cancelled")

// ErrQueueClosed is returned by OnObject after Close.
var ErrQueueClosed = errors.New("objstream: queue-thread stream closed")

// QueueThreadStream decouples a producer from Next via a bounded queue
// and a dedicated worker goroutine (spec.md §4.8) — the one place the
// pipeline's otherwise strict in-order, single-goroutine flow crosses
// a concurrency boundary (spec.md §5: "cross-sink parallelism is
// allowed only via the queue stream boundary").
//
// Close must never be called from inside Next's call chain (i.e. from
// the worker goroutine itself): it waits for the worker to drain and
// exit, so calling it from within the worker deadlocks forever
// (spec.md §5, "deadlock avoidance ... forbids stop() from the worker
// thread itself"). This is a caller contract Go cannot check for you
// at compile time; keep Next's implementations off the stream's own
// worker.
type QueueThreadStream struct {
	next       Sink
	queue      chan *Object
	done       chan struct{}
	cancel     chan struct{}
	cancelled  atomic.Bool
	closeOnce  sync.Once
	cancelOnce sync.Once
	wg         sync.WaitGroup
	workerErr  atomic.Value // error
}

// NewQueueThreadStream starts the worker goroutine and returns a ready
// stream with a queue of the given capacity.
func NewQueueThreadStream(next Sink, capacity int) *QueueThreadStream {
	q := &QueueThreadStream{
		next:   next,
		queue:  make(chan *Object, capacity),
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *QueueThreadStream) run() {
	defer q.wg.Done()
	for {
		select {
		case obj, ok := <-q.queue:
			if !ok {
				return
			}
			q.forward(obj)
		case <-q.done:
			q.drain()
			return
		}
	}
}

func (q *QueueThreadStream) drain() {
	for {
		select {
		case obj, ok := <-q.queue:
			if !ok {
				return
			}
			q.forward(obj)
		default:
			return
		}
	}
}

func (q *QueueThreadStream) forward(obj *Object) {
	if err := q.next.OnObject(obj); err != nil {
		q.workerErr.Store(err)
	}
}

// OnObject blocks until the object is accepted onto the queue, the
// stream is cancelled, or the stream is closed.
func (q *QueueThreadStream) OnObject(obj *Object) error {
	if q.cancelled.Load() {
		return ErrQueueCancelled
	}
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.queue <- obj:
		return nil
	case <-q.cancel:
		return ErrQueueCancelled
	case <-q.done:
		return ErrQueueClosed
	}
}

// Cancel sets the cancellation flag, unblocking any OnObject call
// currently waiting to enqueue (spec.md §4.8).
func (q *QueueThreadStream) Cancel() {
	q.cancelled.Store(true)
	q.cancelOnce.Do(func() { close(q.cancel) })
}

func (q *QueueThreadStream) SetRunningHash(h hashing.Hash) error { return q.next.SetRunningHash(h) }
func (q *QueueThreadStream) Clear() error                        { return q.next.Clear() }

// Close drains whatever is already enqueued, stops the worker, and
// forwards Close to Next. Safe to call more than once.
func (q *QueueThreadStream) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	q.wg.Wait()
	if err, ok := q.workerErr.Load().(error); ok && err != nil {
		return err
	}
	return q.next.Close()
}
