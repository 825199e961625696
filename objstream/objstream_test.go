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
	"os"
	"testing"
	"time"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// fakeSigner signs by returning the hash bytes verbatim, good enough to
// exercise the signature file format without pulling in a real key.
type fakeSigner struct{}

func (fakeSigner) Sign(h hashing.Hash) ([]byte, error) { return h.Marshal(), nil }

// recordingSink captures every call made to it, for assertions.
type recordingSink struct {
	objects       []*Object
	runningHashes []hashing.Hash
	cleared       int
	closed        int
	failOnObject  error
}

func (s *recordingSink) OnObject(obj *Object) error {
	if s.failOnObject != nil {
		return s.failOnObject
	}
	s.objects = append(s.objects, obj)
	return nil
}

func (s *recordingSink) SetRunningHash(h hashing.Hash) error {
	s.runningHashes = append(s.runningHashes, h)
	return nil
}

func (s *recordingSink) Clear() error { s.cleared++; return nil }
func (s *recordingSink) Close() error { s.closed++; return nil }

func newObject(classID int64, payload string, ts time.Time) *Object {
	return &Object{ClassID: classID, Version: 1, Payload: []byte(payload), Timestamp: ts}
}

func TestHashCalculatorDigestsUnhashedObject(t *testing.T) {
	next := &recordingSink{}
	hc := &HashCalculator{Crypto: hashing.Default, Next: next}

	obj := newObject(1, "payload", time.Now())
	if err := hc.OnObject(obj); err != nil {
		t.Fatal(err)
	}
	if obj.Hash.IsNull() {
		t.Fatal("expected HashCalculator to set a non-null hash")
	}
	want := hashing.Default.Digest([]byte("payload"))
	if !obj.Hash.Equal(want) {
		t.Fatalf("hash = %s, want %s", obj.Hash, want)
	}
	if len(next.objects) != 1 {
		t.Fatalf("expected object forwarded to Next, got %d", len(next.objects))
	}
}

func TestHashCalculatorPreservesUpstreamHash(t *testing.T) {
	next := &recordingSink{}
	hc := &HashCalculator{Crypto: hashing.Default, Next: next}

	preset := hashing.Default.Digest([]byte("preset"))
	obj := newObject(1, "payload", time.Now())
	obj.Hash = preset
	if err := hc.OnObject(obj); err != nil {
		t.Fatal(err)
	}
	if !obj.Hash.Equal(preset) {
		t.Fatalf("HashCalculator overwrote an already-set hash")
	}
}

func TestRunningHashCalculatorChains(t *testing.T) {
	next := &recordingSink{}
	rhc := &RunningHashCalculator{Crypto: hashing.Default, Alg: hashing.AlgSHA384, Next: next}

	h1 := hashing.Default.Digest([]byte("one"))
	h2 := hashing.Default.Digest([]byte("two"))

	obj1 := newObject(1, "one", time.Now())
	obj1.Hash = h1
	if err := rhc.OnObject(obj1); err != nil {
		t.Fatal(err)
	}
	wantRunning1 := hashing.Default.RunningHash(hashing.Null, h1, hashing.AlgSHA384)
	if !obj1.RunningHash.Equal(wantRunning1) {
		t.Fatalf("running hash 1 = %s, want %s", obj1.RunningHash, wantRunning1)
	}

	obj2 := newObject(1, "two", time.Now())
	obj2.Hash = h2
	if err := rhc.OnObject(obj2); err != nil {
		t.Fatal(err)
	}
	wantRunning2 := hashing.Default.RunningHash(wantRunning1, h2, hashing.AlgSHA384)
	if !obj2.RunningHash.Equal(wantRunning2) {
		t.Fatalf("running hash 2 = %s, want %s", obj2.RunningHash, wantRunning2)
	}
	if rhc.Running() != wantRunning2 {
		t.Fatalf("Running() = %s, want %s", rhc.Running(), wantRunning2)
	}

	if err := rhc.Clear(); err != nil {
		t.Fatal(err)
	}
	if rhc.Running() != hashing.Null {
		t.Fatal("Clear must reset the running hash to Null")
	}
	if next.cleared != 1 {
		t.Fatal("Clear must propagate to Next")
	}
}

func TestMultiStreamRejectsEmpty(t *testing.T) {
	if _, err := NewMultiStream(); !errors.Is(err, ErrNoDownstream) {
		t.Fatalf("expected ErrNoDownstream, got %v", err)
	}
}

func TestMultiStreamFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m, err := NewMultiStream(a, b)
	if err != nil {
		t.Fatal(err)
	}

	obj := newObject(1, "payload", time.Now())
	if err := m.OnObject(obj); err != nil {
		t.Fatal(err)
	}
	if len(a.objects) != 1 || len(b.objects) != 1 {
		t.Fatalf("expected both sinks to see the object, got a=%d b=%d", len(a.objects), len(b.objects))
	}

	h := hashing.Default.Digest([]byte("x"))
	if err := m.SetRunningHash(h); err != nil {
		t.Fatal(err)
	}
	if len(a.runningHashes) != 1 || len(b.runningHashes) != 1 {
		t.Fatal("expected SetRunningHash to propagate to both sinks")
	}

	if err := m.Clear(); err != nil {
		t.Fatal(err)
	}
	if a.cleared != 1 || b.cleared != 1 {
		t.Fatal("expected Clear to propagate to both sinks")
	}

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if a.closed != 1 || b.closed != 1 {
		t.Fatal("expected Close to propagate to both sinks")
	}
}

func TestMultiStreamPropagatesSinkError(t *testing.T) {
	failErr := errors.New("boom")
	a := &recordingSink{}
	b := &recordingSink{failOnObject: failErr}
	m, err := NewMultiStream(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.OnObject(newObject(1, "x", time.Now())); !errors.Is(err, failErr) {
		t.Fatalf("expected %v, got %v", failErr, err)
	}
}

func TestQueueThreadStreamForwardsInOrder(t *testing.T) {
	next := &recordingSink{}
	q := NewQueueThreadStream(next, 4)

	for i := 0; i < 10; i++ {
		obj := newObject(int64(i), "x", time.Now())
		if err := q.OnObject(obj); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if len(next.objects) != 10 {
		t.Fatalf("expected 10 objects forwarded, got %d", len(next.objects))
	}
	for i, obj := range next.objects {
		if obj.ClassID != int64(i) {
			t.Fatalf("objects forwarded out of order: position %d has ClassID %d", i, obj.ClassID)
		}
	}
	if next.closed != 1 {
		t.Fatal("expected Close to propagate to Next exactly once")
	}
}

func TestQueueThreadStreamCancelUnblocks(t *testing.T) {
	next := &recordingSink{}
	// Capacity zero makes OnObject a direct hand-off to the worker;
	// Cancel fires first, so OnObject must report cancellation instead
	// of enqueueing.
	q := NewQueueThreadStream(next, 0)
	q.Cancel()

	err := q.OnObject(newObject(1, "x", time.Now()))
	if !errors.Is(err, ErrQueueCancelled) {
		t.Fatalf("expected ErrQueueCancelled, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestQueueThreadStreamOnObjectAfterClose(t *testing.T) {
	next := &recordingSink{}
	q := NewQueueThreadStream(next, 1)
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if err := q.OnObject(newObject(1, "x", time.Now())); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestTimestampStreamFileWriterRotatesOnWindowChange(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTimestampStreamFileWriter(dir, 1000, fakeSigner{})
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	obj1 := newObject(1, "first", base)
	obj1.RunningHash = hashing.Default.Digest([]byte("rh1"))
	if err := w.OnObject(obj1); err != nil {
		t.Fatal(err)
	}

	obj2 := newObject(2, "second", base.Add(2*time.Second))
	obj2.RunningHash = hashing.Default.Digest([]byte("rh2"))
	if err := w.OnObject(obj2); err != nil {
		t.Fatal(err)
	}

	if len(w.ClosedFiles) != 1 {
		t.Fatalf("expected one file rotated out by the window change, got %d", len(w.ClosedFiles))
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if len(w.ClosedFiles) != 2 {
		t.Fatalf("expected Close to flush the final window, got %d files", len(w.ClosedFiles))
	}

	for _, path := range w.ClosedFiles {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("stream file missing: %v", err)
		}
		if _, err := os.Stat(path + sigFileExt); err != nil {
			t.Fatalf("signature file missing: %v", err)
		}
	}

	sf, err := ReadStreamFile(w.ClosedFiles[0], len(w.FileHeader))
	if err != nil {
		t.Fatal(err)
	}
	if len(sf.Objects) != 1 || sf.Objects[0].ClassID != 1 {
		t.Fatalf("first file objects = %+v", sf.Objects)
	}
	if !sf.EndHash.Equal(obj1.RunningHash) {
		t.Fatalf("first file end hash = %s, want %s", sf.EndHash, obj1.RunningHash)
	}
}

func TestTimestampStreamFileWriterWaitForCompleteWindow(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTimestampStreamFileWriter(dir, 1000, fakeSigner{})
	if err != nil {
		t.Fatal(err)
	}
	w.WaitForCompleteWindow = true

	base := time.Date(2026, 7, 30, 12, 0, 0, 500_000_000, time.UTC) // mid-window
	partial := newObject(1, "partial", base)
	partial.RunningHash = hashing.Default.Digest([]byte("rh"))
	if err := w.OnObject(partial); err != nil {
		t.Fatal(err)
	}
	if len(w.ClosedFiles) != 0 {
		t.Fatal("expected the partial baseline window to be suppressed, not written")
	}

	next := newObject(2, "clean", base.Add(600*time.Millisecond)) // new window
	next.RunningHash = hashing.Default.Digest([]byte("rh2"))
	if err := w.OnObject(next); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if len(w.ClosedFiles) != 1 {
		t.Fatalf("expected exactly one file once suppression lifted, got %d", len(w.ClosedFiles))
	}
	sf, err := ReadStreamFile(w.ClosedFiles[0], len(w.FileHeader))
	if err != nil {
		t.Fatal(err)
	}
	if len(sf.Objects) != 1 || sf.Objects[0].ClassID != 2 {
		t.Fatalf("expected only the post-suppression object, got %+v", sf.Objects)
	}
}

func TestTimestampStreamFileWriterRejectsNilSigner(t *testing.T) {
	if _, err := NewTimestampStreamFileWriter(t.TempDir(), 1000, nil); !errors.Is(err, ErrNoSigner) {
		t.Fatalf("expected ErrNoSigner, got %v", err)
	}
}

// pipeline builds HashCalculator -> RunningHashCalculator -> writer, the
// composition spec.md §4.8 describes as the production chain.
func buildPipeline(t *testing.T, dir string, windowMillis int64) (*HashCalculator, *TimestampStreamFileWriter) {
	t.Helper()
	w, err := NewTimestampStreamFileWriter(dir, windowMillis, fakeSigner{})
	if err != nil {
		t.Fatal(err)
	}
	rhc := &RunningHashCalculator{Crypto: hashing.Default, Alg: hashing.AlgSHA384, Next: w}
	hc := &HashCalculator{Crypto: hashing.Default, Next: rhc}
	return hc, w
}

func TestVerifyChainHappyPath(t *testing.T) {
	dir := t.TempDir()
	hc, w := buildPipeline(t, dir, 1000)

	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		obj := newObject(int64(i), "payload", base.Add(time.Duration(i)*600*time.Millisecond))
		if err := hc.OnObject(obj); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if len(w.ClosedFiles) < 2 {
		t.Fatalf("expected multiple rotated files to exercise chaining, got %d", len(w.ClosedFiles))
	}

	start, end, total, err := VerifyChain(w.ClosedFiles, len(w.FileHeader))
	if err != nil {
		t.Fatal(err)
	}
	if total != 6 {
		t.Fatalf("expected 6 objects across the chain, got %d", total)
	}
	if start != hashing.Null {
		t.Fatalf("expected the chain to start from Null, got %s", start)
	}
	last, err := ReadStreamFile(w.ClosedFiles[len(w.ClosedFiles)-1], len(w.FileHeader))
	if err != nil {
		t.Fatal(err)
	}
	if !end.Equal(last.EndHash) {
		t.Fatalf("VerifyChain end = %s, want %s", end, last.EndHash)
	}
}

func TestVerifyChainDetectsBreak(t *testing.T) {
	dir := t.TempDir()
	hc, w := buildPipeline(t, dir, 1000)

	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		obj := newObject(int64(i), "payload", base.Add(time.Duration(i)*600*time.Millisecond))
		if err := hc.OnObject(obj); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if len(w.ClosedFiles) < 2 {
		t.Fatalf("need at least two files to exercise a broken chain, got %d", len(w.ClosedFiles))
	}

	// Corrupt the first file's recorded end hash so it no longer
	// matches the second file's start hash.
	path := w.ClosedFiles[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, _, err = VerifyChain(w.ClosedFiles, len(w.FileHeader))
	var chainErr *InvalidChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *InvalidChainError, got %v", err)
	}
	if chainErr.Path != w.ClosedFiles[1] {
		t.Fatalf("InvalidChainError.Path = %s, want %s", chainErr.Path, w.ClosedFiles[1])
	}
}
