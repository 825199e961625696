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
	"fmt"
	"os"
	"sort"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

const hashMarshalSize = 1 + hashing.Size

// InvalidChainError reports where a sorted run of stream files fails
// to chain: file N's end running-hash must equal file N+1's start
// running-hash (spec.md §4.8, "Verification iterator").
type InvalidChainError struct {
	Path string
	Got  hashing.Hash
	Want hashing.Hash
}

func (e *InvalidChainError) Error() string {
	return fmt.Sprintf("objstream: invalid chain at %s: start hash %s != previous end hash %s", e.Path, e.Got, e.Want)
}

// StreamFile is one decoded stream file (spec.md §6): its recorded
// start/end running hashes and every object it carries, in order.
type StreamFile struct {
	Path      string
	StartHash hashing.Hash
	EndHash   hashing.Hash
	Objects   []Object
}

// ReadStreamFile parses one stream file written by
// TimestampStreamFileWriter. headerLen is the length of the
// type-specific file_header_bytes prefix (spec.md §6 gives the example
// [5], a single byte).
func ReadStreamFile(path string, headerLen int) (StreamFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StreamFile{}, err
	}
	if len(raw) < headerLen+4+2*hashMarshalSize {
		return StreamFile{}, fmt.Errorf("objstream: %s: truncated stream file", path)
	}
	rest := raw[headerLen:]
	version := int32(hashing.Uint32(rest[0:4]))
	if version != StreamFormatVersion {
		return StreamFile{}, fmt.Errorf("objstream: %s: unsupported stream format version %d", path, version)
	}
	rest = rest[4:]

	start, rest, err := hashing.Unmarshal(rest)
	if err != nil {
		return StreamFile{}, fmt.Errorf("objstream: %s: %w", path, err)
	}
	if len(rest) < hashMarshalSize {
		return StreamFile{}, fmt.Errorf("objstream: %s: truncated stream file", path)
	}
	objBytes := rest[:len(rest)-hashMarshalSize]
	end, _, err := hashing.Unmarshal(rest[len(rest)-hashMarshalSize:])
	if err != nil {
		return StreamFile{}, fmt.Errorf("objstream: %s: %w", path, err)
	}

	var objects []Object
	for len(objBytes) > 0 {
		classID, version, payload, remaining, err := decodeObjectRecord(objBytes)
		if err != nil {
			return StreamFile{}, fmt.Errorf("objstream: %s: %w", path, err)
		}
		objects = append(objects, Object{ClassID: classID, Version: version, Payload: payload})
		objBytes = remaining
	}

	return StreamFile{Path: path, StartHash: start, EndHash: end, Objects: objects}, nil
}

// VerifyChain walks paths in sorted (by name) order, parsing each
// stream file and checking that every file's start hash equals the
// previous file's end hash. It returns the first file's start hash,
// the last file's end hash, the total object count, and an
// *InvalidChainError (wrapped in err) at the first break, if any.
func VerifyChain(paths []string, headerLen int) (start, end hashing.Hash, totalObjects int, err error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	var prevEnd hashing.Hash
	haveFirst := false
	for _, p := range sorted {
		sf, err := ReadStreamFile(p, headerLen)
		if err != nil {
			return hashing.Hash{}, hashing.Hash{}, 0, err
		}
		if !haveFirst {
			start = sf.StartHash
			haveFirst = true
		} else if !sf.StartHash.Equal(prevEnd) {
			return hashing.Hash{}, hashing.Hash{}, 0, &InvalidChainError{Path: sf.Path, Got: sf.StartHash, Want: prevEnd}
		}
		totalObjects += len(sf.Objects)
		prevEnd = sf.EndHash
		end = sf.EndHash
	}
	return start, end, totalObjects, nil
}
