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

package diskmap

import (
	"testing"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
)

func TestComputeBucketCounts(t *testing.T) {
	tests := []struct {
		name          string
		mapSize       uint64
		wantMin       uint32
		wantNumBucket uint32
	}{
		{"small", 100, 9, 16},
		{"exact_power", 240, 20, 32},
		{"one", 1, 1, 1},
		{"zero", 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, num, err := ComputeBucketCounts(tt.mapSize)
			if err != nil {
				t.Fatal(err)
			}
			if min != tt.wantMin {
				t.Errorf("minBuckets = %d, want %d", min, tt.wantMin)
			}
			if num != tt.wantNumBucket {
				t.Errorf("numBuckets = %d, want %d", num, tt.wantNumBucket)
			}
			if num&(num-1) != 0 {
				t.Errorf("numBuckets %d is not a power of two", num)
			}
		})
	}
}

func TestBucketIndexMasking(t *testing.T) {
	if got := BucketIndex(16, 0xFFFFFFFF); got != 15 {
		t.Errorf("got %d, want 15", got)
	}
	if got := BucketIndex(1, 12345); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestBucketEncodeDecodeRoundTrip(t *testing.T) {
	b := newBucket(7)
	b.apply(1, []byte("alpha"), 100)
	b.apply(2, []byte("beta"), 200)
	raw := b.encode()

	n, err := BucketFramer(raw)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(raw) {
		t.Fatalf("framer length %d != encoded length %d", n, len(raw))
	}

	got, err := decodeBucket(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.index != 7 || len(got.entries) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got.entries[0].value != 100 || string(got.entries[0].keyBytes) != "alpha" {
		t.Fatalf("entry 0 mismatch: %+v", got.entries[0])
	}
}

func TestBucketApplyPutUpdateDelete(t *testing.T) {
	b := newBucket(0)
	b.apply(1, []byte("k"), 10)
	b.apply(1, []byte("k"), 20) // update in place
	if len(b.entries) != 1 || b.entries[0].value != 20 {
		t.Fatalf("expected single updated entry, got %+v", b.entries)
	}
	b.apply(1, []byte("k"), Tombstone) // delete
	if len(b.entries) != 0 {
		t.Fatalf("expected entry removed, got %+v", b.entries)
	}
}

func TestStorePutGetEndToEnd(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 1000)
	if err != nil {
		t.Fatal(err)
	}

	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(BytesKey("hello"), 42); err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(BytesKey("world"), 43); err != nil {
		t.Fatal(err)
	}
	if err := ws.EndWriting(); err != nil {
		t.Fatal(err)
	}

	v, err := s.Get(BytesKey("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
	if _, err := s.Get(BytesKey("nope")); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	// A second session updates one key and deletes the other.
	ws2, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws2.Put(BytesKey("hello"), 99); err != nil {
		t.Fatal(err)
	}
	if err := ws2.Delete(BytesKey("world")); err != nil {
		t.Fatal(err)
	}
	if err := ws2.EndWriting(); err != nil {
		t.Fatal(err)
	}

	v, err = s.Get(BytesKey("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if v != 99 {
		t.Fatalf("got %d, want 99", v)
	}
	if _, err := s.Get(BytesKey("world")); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound after delete", err)
	}
}

func TestBeginWritingRejectsConcurrentSession(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 100)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.BeginWriting(datafile.Header{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BeginWriting(datafile.Header{}); err != ErrWriteInProgress {
		t.Fatalf("got %v, want ErrWriteInProgress", err)
	}
}

func TestMergeDropsStaleKeepsLive(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 100)
	if err != nil {
		t.Fatal(err)
	}

	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(BytesKey("a"), 1); err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(BytesKey("b"), 2); err != nil {
		t.Fatal(err)
	}
	if err := ws.EndWriting(); err != nil {
		t.Fatal(err)
	}

	// Second session overwrites "a" only, landing it in file 1, while
	// file 0 still physically contains a's stale bucket copy too (both
	// keys may share a bucket; the point is file 0 is now mergeable
	// with some entries possibly superseded).
	ws2, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws2.Put(BytesKey("a"), 100); err != nil {
		t.Fatal(err)
	}
	if err := ws2.EndWriting(); err != nil {
		t.Fatal(err)
	}

	if err := s.Merge(datafile.OldestNFiles, 1); err != nil {
		t.Fatal(err)
	}

	va, err := s.Get(BytesKey("a"))
	if err != nil {
		t.Fatal(err)
	}
	if va != 100 {
		t.Fatalf("got %d, want 100 (post-merge value of a)", va)
	}
	vb, err := s.Get(BytesKey("b"))
	if err != nil {
		t.Fatal(err)
	}
	if vb != 2 {
		t.Fatalf("got %d, want 2 (b survives merge unchanged)", vb)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 100)
	if err != nil {
		t.Fatal(err)
	}
	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(BytesKey("snapshot-key"), 7); err != nil {
		t.Fatal(err)
	}
	if err := ws.EndWriting(); err != nil {
		t.Fatal(err)
	}

	snapDir := t.TempDir()
	frozen, err := s.SnapshotBegin()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SnapshotMid(snapDir, frozen); err != nil {
		t.Fatal(err)
	}
	s.SnapshotEnd()

	minB, numB, err := LoadSnapshotMetadata(snapDir)
	if err != nil {
		t.Fatal(err)
	}
	if numB != s.numBuckets || minB != s.minBuckets {
		t.Fatalf("metadata mismatch: got (%d,%d), want (%d,%d)", minB, numB, s.minBuckets, s.numBuckets)
	}
	locations, err := LoadSnapshotIndex(snapDir)
	if err != nil {
		t.Fatal(err)
	}
	if uint32(len(locations)) != s.numBuckets {
		t.Fatalf("got %d locations, want %d", len(locations), s.numBuckets)
	}

	bucketIdx := BucketIndex(s.numBuckets, BytesKey("snapshot-key").Hash())
	if locations[bucketIdx].IsNull() {
		t.Fatal("expected snapshot index to record the written bucket's location")
	}
}

func TestSnapshotSingleFlight(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 100)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SnapshotBegin(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SnapshotBegin(); err != ErrSnapshotInFlight {
		t.Fatalf("got %v, want ErrSnapshotInFlight", err)
	}
	s.SnapshotEnd()
	if _, err := s.SnapshotBegin(); err != nil {
		t.Fatalf("expected snapshot to be acquirable again after SnapshotEnd: %v", err)
	}
}
