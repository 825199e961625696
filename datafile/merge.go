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
	"errors"
	"os"
	"path/filepath"
	"sort"
)

// ErrMergePaused is returned by MergeFiles when the pause permit is
// already held, i.e. by another merge sharing it (spec.md §4.7: "when
// ... the pause permit is clear").
var ErrMergePaused = errors.New("datafile: merge paused, permit already held")

// RecordFramer reports the length, in bytes, of the single record
// beginning at the front of data. Records are self-describing (spec.md
// §6's bucket record carries its own size_bytes), so callers supply
// the framing logic for their own record shape.
type RecordFramer func(data []byte) (recordLen int, err error)

// LivenessCheck reports whether the record that used to live at old is
// still the current, referenced copy — i.e. whether it should survive
// the merge.
type LivenessCheck func(old Location) (bool, error)

// Mover is invoked once per surviving record with its old and new
// Location, so the caller can CAS its index. A true superseded return
// means another writer beat the merge to this entry; the record is
// discarded rather than treated as an error (spec.md §4.7, "if CAS
// fails, another writer has superseded the entry").
type Mover func(old, new Location) (superseded bool, err error)

// MergeFilter selects a contiguous-in-time subset of candidate file
// indices (ascending, oldest first) to merge next.
type MergeFilter func(candidates []uint32, minFiles int) []uint32

// OldestNFiles is the default MergeFilter: the oldest minFiles files,
// or none if fewer than minFiles are available.
func OldestNFiles(candidates []uint32, minFiles int) []uint32 {
	if len(candidates) < minFiles {
		return nil
	}
	out := make([]uint32, minFiles)
	copy(out, candidates[:minFiles])
	return out
}

// readBody returns a closed file's bytes following its header.
func readBody(f *File) ([]byte, error) {
	p := filepath.Join(f.dir, fileName(f.index))
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	if len(raw) < HeaderSize {
		return nil, &CorruptFileError{Index: f.index, Offset: 0, Err: errors.New("file shorter than header")}
	}
	return raw[HeaderSize:], nil
}

// MergeFiles streams the records of every input file (in ascending
// index, i.e. chronological, order), keeps only records isLive still
// reports as current, and rewrites them into one freshly-started file
// in out. For each surviving record, mover is invoked with its old and
// new Location so the caller's index stays consistent (spec.md §4.7).
// Input files are retired — but not deleted — once every one of them
// has been fully rewritten; physical deletion waits for their reader
// refcounts to reach zero (spec.md §3, DataFile lifecycle).
//
// Splitting output across more than one file on a size threshold is
// left to the caller: invoke MergeFiles again with a fresh newHeader
// once an output file grows past the caller's preferred bound.
func MergeFiles(c *Collection, out *Collection, framer RecordFramer, inputs []uint32, isLive LivenessCheck, mover Mover, newHeader Header, permit *PausePermit) ([]*File, error) {
	if permit != nil {
		if !permit.TryAcquire() {
			return nil, ErrMergePaused
		}
		defer permit.Release()
	}

	sorted := append([]uint32(nil), inputs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	held := make([]*File, 0, len(sorted))
	defer func() {
		for _, f := range held {
			_ = c.Release(f)
		}
	}()
	for _, idx := range sorted {
		f, err := c.Acquire(idx)
		if err != nil {
			return nil, err
		}
		held = append(held, f)
	}

	outFile, err := out.StartWriting(newHeader)
	if err != nil {
		return nil, err
	}

	for _, f := range held {
		body, err := readBody(f)
		if err != nil {
			_ = out.AbortWriting()
			return nil, err
		}
		offset := uint32(HeaderSize)
		for len(body) > 0 {
			n, err := framer(body)
			if err != nil {
				_ = out.AbortWriting()
				return nil, &CorruptFileError{Index: f.index, Offset: int64(offset), Err: err}
			}
			record := body[:n]
			old := NewLocation(f.index, offset)

			live, err := isLive(old)
			if err != nil {
				_ = out.AbortWriting()
				return nil, err
			}
			if live {
				newLoc, err := outFile.Append(record)
				if err != nil {
					_ = out.AbortWriting()
					return nil, err
				}
				if superseded, err := mover(old, newLoc); err != nil {
					_ = out.AbortWriting()
					return nil, err
				} else if superseded {
					// another writer already moved this key on; the
					// copy we just wrote is harmless dead weight,
					// left for the next merge pass to drop.
				}
			}

			body = body[n:]
			offset += uint32(n)
		}
	}

	published, err := out.EndWriting()
	if err != nil {
		return nil, err
	}

	for _, f := range held {
		f.retire()
	}

	return []*File{published}, nil
}
