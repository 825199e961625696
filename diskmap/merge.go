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
	"time"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// bucketSerializerClass tags the record format merged output files
// carry; it has no meaning beyond distinguishing it in a file header.
const bucketSerializerClass = 1

// Merge compacts the files filter selects (out of the collection's
// currently known, merge-eligible files) into one freshly written
// file, dropping any bucket record that the live index no longer
// points at (spec.md §4.7, "Merge (compaction)"). The pause permit
// keeps two merges on this Store from overlapping (the second returns
// datafile.ErrMergePaused); snapshots do not take it.
func (s *Store) Merge(filter datafile.MergeFilter, minFiles int) error {
	candidates := s.dir.Files()
	selected := filter(candidates, minFiles)
	if len(selected) == 0 {
		return ErrMergeAborted
	}

	bucketOf := make(map[datafile.Location]uint32, 64)
	isLive := func(old datafile.Location) (bool, error) {
		f, err := s.dir.Acquire(old.FileIndex())
		if err != nil {
			return false, err
		}
		defer s.dir.Release(f)
		head, err := f.ReadAt(old.Offset(), 4)
		if err != nil {
			return false, err
		}
		bucketIdx := hashing.Uint32(head)
		bucketOf[old] = bucketIdx
		return s.index.load(bucketIdx) == old, nil
	}
	mover := func(old, newLoc datafile.Location) (bool, error) {
		bucketIdx := bucketOf[old]
		superseded := !s.index.cas(bucketIdx, old, newLoc)
		return superseded, nil
	}

	header := datafile.Header{
		CreationTS:        time.Now().Unix(),
		SerializerClass:   bucketSerializerClass,
		SerializerVersion: 1,
	}
	_, err := datafile.MergeFiles(s.dir, s.dir, BucketFramer, selected, isLive, mover, header, s.permit)
	return err
}
