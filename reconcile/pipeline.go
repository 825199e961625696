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
	"sync"
	"time"
)

// lessonResult is what the reader goroutine places on the received
// queue: either a decoded Lesson or the error that ended the stream.
type lessonResult struct {
	lesson Lesson
	err    error
}

// pipelineReader is the learner's async reader task (spec.md §4.4,
// "Concurrency"): the main learner goroutine drops a token on
// anticipated for every Lesson it expects next, in the order it
// expects them; the reader goroutine drains that queue, performs the
// (potentially slow) blocking read + decode, and places the outcome on
// received in the same order. Order is preserved by the queues'
// discipline, never by a message identifier.
type pipelineReader struct {
	r io.Reader

	anticipated chan struct{}
	received    chan lessonResult

	closeOnce sync.Once
	done      chan struct{}
}

func newPipelineReader(r io.Reader, queueDepth int) *pipelineReader {
	if queueDepth <= 0 {
		queueDepth = 4
	}
	pr := &pipelineReader{
		r:           r,
		anticipated: make(chan struct{}, queueDepth),
		received:    make(chan lessonResult, queueDepth),
		done:        make(chan struct{}),
	}
	go pr.run()
	return pr
}

func (pr *pipelineReader) run() {
	defer close(pr.received)
	for {
		select {
		case <-pr.anticipated:
			lesson, err := ReadLesson(pr.r)
			select {
			case pr.received <- lessonResult{lesson: lesson, err: err}:
			case <-pr.done:
				return
			}
			if err != nil {
				return
			}
		case <-pr.done:
			return
		}
	}
}

// anticipate enqueues one expected-lesson token. It can block if the
// queue is full, which is the bounded-queue backpressure named in
// spec.md §4.4.
func (pr *pipelineReader) anticipate() {
	select {
	case pr.anticipated <- struct{}{}:
	case <-pr.done:
	}
}

// next waits for the reader goroutine's next decoded Lesson, subject
// to timeout. A timeout or closed pipe both count as a fatal session
// error (spec.md §4.4, "Timeouts").
func (pr *pipelineReader) next(timeout time.Duration) (Lesson, error) {
	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		timeoutCh = timer.C
		defer timer.Stop()
	}
	select {
	case res, ok := <-pr.received:
		if !ok {
			return Lesson{}, io.ErrClosedPipe
		}
		return res.lesson, res.err
	case <-timeoutCh:
		return Lesson{}, errReadTimeout
	}
}

// cancel force-stops the reader goroutine and drains any queued
// tokens/results without blocking further reads (spec.md §4.4,
// "Cancellation"). Safe to call more than once.
func (pr *pipelineReader) cancel() {
	pr.closeOnce.Do(func() { close(pr.done) })
	for range pr.received {
		// drain whatever the reader goroutine already produced before
		// it observed done.
	}
}
