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
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// MetadataFormatVersion is the only on-disk snapshot-metadata layout
// this package understands.
const MetadataFormatVersion int32 = 1

const (
	indexFileName    = "index"
	metadataFileName = "metadata"
)

// SnapshotBegin starts the 3-phase snapshot protocol, mirroring
// diskmap's: it enables the index overlay and freezes the current file
// set for copying. Single-flight, same as diskmap.
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
// frozen sparse index, and writes the valid-key-range metadata (spec.md
// §6, "metadata (format_version, min_buckets, num_buckets,
// valid_key_range)" — this package's analogue carries valid_key_range
// in place of the bucket counts).
func (s *Store) SnapshotMid(dir string, frozenFiles []uint32) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, idx := range frozenFiles {
		if err := linkDataFile(s.dir, dir, idx); err != nil {
			return err
		}
	}
	min, max, entries := s.index.snapshotAll()
	if err := writeIndexFile(filepath.Join(dir, indexFileName), entries); err != nil {
		return err
	}
	return writeMetadataFile(filepath.Join(dir, metadataFileName), min, max)
}

// SnapshotEnd folds the overlay back into the base index and ends the
// snapshot.
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

func writeIndexFile(path string, entries map[int64]datafile.Location) error {
	buf := make([]byte, 8+16*len(entries))
	hashing.PutUint64(buf[0:8], uint64(len(entries)))
	off := 8
	for key, loc := range entries {
		hashing.PutUint64(buf[off:off+8], uint64(key))
		hashing.PutUint64(buf[off+8:off+16], uint64(loc))
		off += 16
	}
	return os.WriteFile(path, buf, 0o644)
}

func writeMetadataFile(path string, min, max int64) error {
	buf := make([]byte, 20)
	hashing.PutUint32(buf[0:4], uint32(MetadataFormatVersion))
	hashing.PutUint64(buf[4:12], uint64(min))
	hashing.PutUint64(buf[12:20], uint64(max))
	return os.WriteFile(path, buf, 0o644)
}

// LoadSnapshotIndex reads a snapshot's frozen sparse index file via
// mmap, the same rationale as diskmap's: avoid a full-file read for a
// structure that scales with live key count.
func LoadSnapshotIndex(dir string) (map[int64]datafile.Location, error) {
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
	out := make(map[int64]datafile.Location, count)
	entry := make([]byte, 16)
	for i := uint64(0); i < count; i++ {
		if _, err := r.ReadAt(entry, int64(8+16*i)); err != nil {
			return nil, fmt.Errorf("kvstore: reading index entry %d: %w", i, err)
		}
		key := int64(hashing.Uint64(entry[0:8]))
		out[key] = datafile.Location(hashing.Uint64(entry[8:16]))
	}
	return out, nil
}

// LoadSnapshotMetadata reads a snapshot's metadata file.
func LoadSnapshotMetadata(dir string) (min, max int64, err error) {
	raw, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err != nil {
		return 0, 0, err
	}
	if len(raw) < 20 {
		return 0, 0, fmt.Errorf("kvstore: truncated metadata file")
	}
	version := int32(hashing.Uint32(raw[0:4]))
	if version != MetadataFormatVersion {
		return 0, 0, fmt.Errorf("kvstore: unsupported metadata format version %d", version)
	}
	return int64(hashing.Uint64(raw[4:12])), int64(hashing.Uint64(raw[12:20])), nil
}
