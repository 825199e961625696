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
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// MetadataFormatVersion is the only on-disk snapshot-metadata layout
// this package understands (spec.md §6, "Hash map metadata file").
const MetadataFormatVersion int32 = 1

const (
	indexFileName    = "index"
	metadataFileName = "metadata"
)

// SnapshotBegin starts the 3-phase snapshot protocol (spec.md §4.5):
// while briefly blocking new write sessions, it enables the index
// overlay and freezes the current file set for copying. It fails fast
// if another snapshot is already in progress (Open Question decision:
// snapshots are single-flight).
func (s *Store) SnapshotBegin() ([]uint32, error) {
	if !s.snapshotInFlight.CompareAndSwap(false, true) {
		return nil, ErrSnapshotInFlight
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.beginOverlay()
	return s.dir.Files(), nil
}

// SnapshotMid hard-links the frozen file set into dir, writes the
// frozen index, and writes snapshot metadata. Write sessions are
// unblocked for the duration of this phase (spec.md §4.5 phase 2).
func (s *Store) SnapshotMid(dir string, frozenFiles []uint32) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, idx := range frozenFiles {
		if err := linkDataFile(s.dir, dir, idx); err != nil {
			return err
		}
	}
	if err := writeIndexFile(filepath.Join(dir, indexFileName), s.index.snapshotLocations()); err != nil {
		return err
	}
	return writeMetadataFile(filepath.Join(dir, metadataFileName), s.minBuckets, s.numBuckets)
}

// SnapshotEnd briefly re-blocks writers, folds the overlay back into
// the base index, and ends the snapshot (spec.md §4.5 phase 3).
func (s *Store) SnapshotEnd() {
	s.mu.Lock()
	s.index.endOverlay()
	s.mu.Unlock()
	s.snapshotInFlight.Store(false)
}

func linkDataFile(from *datafile.Collection, toDir string, index uint32) error {
	src := from.Path(index)
	dst := filepath.Join(toDir, filepath.Base(src))
	if err := os.Link(src, dst); err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func writeIndexFile(path string, locations []datafile.Location) error {
	buf := make([]byte, 8+8*len(locations))
	hashing.PutUint64(buf[0:8], uint64(len(locations)))
	off := 8
	for _, loc := range locations {
		hashing.PutUint64(buf[off:off+8], uint64(loc))
		off += 8
	}
	return os.WriteFile(path, buf, 0o644)
}

func writeMetadataFile(path string, minBuckets, numBuckets uint32) error {
	buf := make([]byte, 12)
	hashing.PutUint32(buf[0:4], uint32(MetadataFormatVersion))
	hashing.PutUint32(buf[4:8], minBuckets)
	hashing.PutUint32(buf[8:12], numBuckets)
	return os.WriteFile(path, buf, 0o644)
}

// LoadSnapshotIndex reads a snapshot's frozen index file via mmap
// rather than a full read-into-memory copy, since index files scale
// with num_buckets and can be large for a sizable map.
func LoadSnapshotIndex(dir string) ([]datafile.Location, error) {
	r, err := mmap.Open(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	head := make([]byte, 8)
	if _, err := r.ReadAt(head, 0); err != nil {
		return nil, err
	}
	count := hashing.Uint64(head)
	out := make([]datafile.Location, count)
	entry := make([]byte, 8)
	for i := uint64(0); i < count; i++ {
		if _, err := r.ReadAt(entry, int64(8+8*i)); err != nil {
			return nil, fmt.Errorf("diskmap: reading index entry %d: %w", i, err)
		}
		out[i] = datafile.Location(hashing.Uint64(entry))
	}
	return out, nil
}

// LoadSnapshotMetadata reads a snapshot's metadata file.
func LoadSnapshotMetadata(dir string) (minBuckets, numBuckets uint32, err error) {
	raw, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err != nil {
		return 0, 0, err
	}
	if len(raw) < 12 {
		return 0, 0, fmt.Errorf("diskmap: truncated metadata file")
	}
	version := int32(hashing.Uint32(raw[0:4]))
	if version != MetadataFormatVersion {
		return 0, 0, fmt.Errorf("diskmap: unsupported metadata format version %d", version)
	}
	return hashing.Uint32(raw[4:8]), hashing.Uint32(raw[8:12]), nil
}
