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

package kvstore

import (
	"bytes"
	"testing"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
)

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	r := record{key: 42, payload: []byte("payload")}
	raw := encodeRecord(r)

	n, err := RecordFramer(raw)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(raw) {
		t.Fatalf("framer length %d != encoded length %d", n, len(raw))
	}

	got, err := decodeRecord(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.key != 42 || !bytes.Equal(got.payload, []byte("payload")) || got.tombstone {
		t.Fatalf("got %+v", got)
	}
}

func TestStorePutGetWithinRange(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(10, []byte("ten")); err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(20, []byte("twenty")); err != nil {
		t.Fatal(err)
	}
	if err := ws.EndWriting(10, 20); err != nil {
		t.Fatal(err)
	}

	v, err := s.Get(10)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v, []byte("ten")) {
		t.Fatalf("got %q, want ten", v)
	}

	min, max := s.ValidKeyRange()
	if min != 10 || max != 20 {
		t.Fatalf("got range (%d,%d), want (10,20)", min, max)
	}
}

func TestGetOutsideRangeIsNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(100, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := ws.EndWriting(100, 200); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(5); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound for a key below range", err)
	}
	if _, err := s.Get(999); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound for a key above range", err)
	}
}

func TestRootKeyExemptFromRange(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(RootKey); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound for an unwritten root key", err)
	}

	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(RootKey, []byte("root")); err != nil {
		t.Fatal(err)
	}
	// Range is published far away from RootKey; the root key must
	// still resolve.
	if err := ws.EndWriting(1000, 2000); err != nil {
		t.Fatal(err)
	}

	v, err := s.Get(RootKey)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v, []byte("root")) {
		t.Fatalf("got %q, want root", v)
	}
}

func TestDeleteTombstones(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(1, []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := ws.EndWriting(1, 1); err != nil {
		t.Fatal(err)
	}

	ws2, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws2.Delete(1); err != nil {
		t.Fatal(err)
	}
	if err := ws2.EndWriting(1, 1); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(1); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound after delete", err)
	}
}

func TestMergeAdvancingRangeDropsStaleKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(1, []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(2, []byte("keep")); err != nil {
		t.Fatal(err)
	}
	if err := ws.EndWriting(1, 2); err != nil {
		t.Fatal(err)
	}

	// Range advances past key 1; only key 2 remains live.
	ws2, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws2.Put(3, []byte("new")); err != nil {
		t.Fatal(err)
	}
	if err := ws2.EndWriting(2, 3); err != nil {
		t.Fatal(err)
	}

	if err := s.Merge(datafile.OldestNFiles, 1); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(1); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound for a key the range advanced past", err)
	}
	v2, err := s.Get(2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v2, []byte("keep")) {
		t.Fatalf("got %q, want keep", v2)
	}
	v3, err := s.Get(3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v3, []byte("new")) {
		t.Fatalf("got %q, want new", v3)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Put(5, []byte("five")); err != nil {
		t.Fatal(err)
	}
	if err := ws.EndWriting(5, 5); err != nil {
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

	min, max, err := LoadSnapshotMetadata(snapDir)
	if err != nil {
		t.Fatal(err)
	}
	if min != 5 || max != 5 {
		t.Fatalf("got range (%d,%d), want (5,5)", min, max)
	}
	entries, err := LoadSnapshotIndex(snapDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := entries[5]; !ok {
		t.Fatal("expected snapshot index to carry key 5")
	}
}

func TestBeginWritingRejectsConcurrentSession(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
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

func TestEndWritingRejectsInvalidRange(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ws, err := s.BeginWriting(datafile.Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.EndWriting(10, 5); err != ErrInvalidRange {
		t.Fatalf("got %v, want ErrInvalidRange", err)
	}
}
