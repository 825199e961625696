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

package datafile

import (
	"encoding/binary"
	"testing"
)

func testHeader() Header {
	return Header{CreationTS: 1, SerializerClass: 42, SerializerVersion: 1, MinKey: 0, MaxKey: 100}
}

// record frames a toy record as a 4-byte big-endian length prefix
// followed by the payload, for use with a RecordFramer in tests.
func record(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(out)))
	copy(out[4:], payload)
	return out
}

func toyFramer(data []byte) (int, error) {
	return int(binary.BigEndian.Uint32(data[:4])), nil
}

func TestStartWritingAppendEndWritingRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	f, err := c.StartWriting(testHeader())
	if err != nil {
		t.Fatal(err)
	}
	loc1, err := f.Append(record([]byte("alpha")))
	if err != nil {
		t.Fatal(err)
	}
	loc2, err := f.Append(record([]byte("beta")))
	if err != nil {
		t.Fatal(err)
	}
	if loc1.FileIndex() != 0 || loc2.FileIndex() != 0 {
		t.Fatalf("expected both records in file 0, got %s and %s", loc1, loc2)
	}
	if loc1.Offset() >= loc2.Offset() {
		t.Fatalf("expected loc1 before loc2: %s, %s", loc1, loc2)
	}

	published, err := c.EndWriting()
	if err != nil {
		t.Fatal(err)
	}
	if published.Index() != 0 {
		t.Fatalf("expected first file index 0, got %d", published.Index())
	}

	// Re-open the directory fresh and confirm the file is discoverable.
	c2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := c2.Files(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected [0], got %v", got)
	}
	rf, err := c2.Acquire(0)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Release(rf)
	if rf.Header().SerializerClass != 42 {
		t.Fatalf("header not round-tripped: %+v", rf.Header())
	}
	raw, err := rf.ReadAt(loc1.Offset(), len(record([]byte("alpha"))))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw[4:]) != "alpha" {
		t.Fatalf("got %q, want %q", raw[4:], "alpha")
	}
}

func TestStartWritingRejectsConcurrentSession(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.StartWriting(testHeader()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.StartWriting(testHeader()); err != ErrAlreadyWriting {
		t.Fatalf("got %v, want ErrAlreadyWriting", err)
	}
}

func TestAcquireRefusesRetiredFile(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	f, err := c.StartWriting(testHeader())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Append(record([]byte("x"))); err != nil {
		t.Fatal(err)
	}
	if _, err := c.EndWriting(); err != nil {
		t.Fatal(err)
	}

	rf, err := c.Acquire(0)
	if err != nil {
		t.Fatal(err)
	}
	rf.retire()
	if _, err := c.Acquire(0); err != ErrRetired {
		t.Fatalf("got %v, want ErrRetired", err)
	}
	// The outstanding handle defers physical deletion until released.
	if err := c.Release(rf); err != nil {
		t.Fatal(err)
	}
}

func TestMergeFilesRewritesLiveRecordsAndRetiresInputs(t *testing.T) {
	dir := t.TempDir()
	inDir := dir + "/in"
	outDir := dir + "/out"
	in, err := Open(inDir)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Open(outDir)
	if err != nil {
		t.Fatal(err)
	}

	// File 0: two records, key "a" superseded later, key "b" stays live.
	f0, err := in.StartWriting(testHeader())
	if err != nil {
		t.Fatal(err)
	}
	locA0, err := f0.Append(record([]byte("a-old")))
	if err != nil {
		t.Fatal(err)
	}
	locB, err := f0.Append(record([]byte("b")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.EndWriting(); err != nil {
		t.Fatal(err)
	}

	// File 1: key "a" rewritten to a newer location outside the merge set.
	f1, err := in.StartWriting(testHeader())
	if err != nil {
		t.Fatal(err)
	}
	locA1, err := f1.Append(record([]byte("a-new")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.EndWriting(); err != nil {
		t.Fatal(err)
	}

	// Index simulation: "a" now points at locA1, "b" still at locB.
	index := map[string]Location{"a": locA1, "b": locB}
	isLive := func(old Location) (bool, error) {
		for _, v := range index {
			if v == old {
				return true, nil
			}
		}
		return false, nil
	}
	var moved []Location
	mover := func(old, newLoc Location) (bool, error) {
		for k, v := range index {
			if v == old {
				index[k] = newLoc
				moved = append(moved, newLoc)
			}
		}
		return false, nil
	}

	produced, err := MergeFiles(in, out, toyFramer, []uint32{0}, isLive, mover, testHeader(), NewPausePermit())
	if err != nil {
		t.Fatal(err)
	}
	if len(produced) != 1 {
		t.Fatalf("expected 1 output file, got %d", len(produced))
	}
	if len(moved) != 1 {
		t.Fatalf("expected exactly one surviving record moved (b), got %d", len(moved))
	}

	// locA0 is now stale and must have been left out of the merge's
	// liveness set because the index already points at locA1.
	if index["a"] != locA1 {
		t.Fatalf("stale record must not have been treated as live: index[a]=%s", index["a"])
	}

	// Input file 0 is retired by the merge and, with no other reader
	// holding it, deleted when the merge releases its own handle: it
	// refuses new acquisitions and is gone from the collection.
	if _, err := in.Acquire(0); err == nil {
		t.Fatal("merged input file 0 must refuse new acquisitions")
	}
	if files := in.Files(); len(files) != 1 || files[0] != 1 {
		t.Fatalf("got files %v, want [1] once the merged input is deleted", files)
	}
	_ = locA0
}

func TestOldestNFilesFilter(t *testing.T) {
	candidates := []uint32{3, 4, 5, 6}
	if got := OldestNFiles(candidates, 5); got != nil {
		t.Fatalf("expected nil when fewer than minFiles candidates, got %v", got)
	}
	got := OldestNFiles(candidates, 2)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("got %v, want [3 4]", got)
	}
}
