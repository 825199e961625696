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
	"errors"
	"fmt"
)

var (
	// ErrWriteInProgress is returned by BeginWriting when a session is
	// already open.
	ErrWriteInProgress = errors.New("kvstore: a write session is already open")
	// ErrThreadAffinity is returned when EndWriting is called on a
	// *WriteSession other than the one BeginWriting handed out (Put and
	// Delete do not check).
	ErrThreadAffinity = errors.New("kvstore: write session used from the wrong caller")
	// ErrSessionClosed is returned by Put/Delete/EndWriting after
	// EndWriting has already completed the session.
	ErrSessionClosed = errors.New("kvstore: write session already ended")
	// ErrSnapshotInFlight is returned by SnapshotBegin when a snapshot
	// is already open.
	ErrSnapshotInFlight = errors.New("kvstore: a snapshot is already in progress")
	// ErrMergeAborted is returned by Merge when the merge filter selects
	// no eligible files. A merge that finds the pause permit held
	// returns datafile.ErrMergePaused instead.
	ErrMergeAborted = errors.New("kvstore: merge aborted")
	// ErrNotFound is returned by Get for an absent key, including every
	// key outside the current valid key range and the root key (0) on
	// a store that has never written it (spec.md §4.6).
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrInvalidRange is returned by EndWriting when the new range's
	// min exceeds its max.
	ErrInvalidRange = errors.New("kvstore: invalid key range")

	errTruncatedRecord = errors.New("kvstore: truncated record")
)

// CorruptFileError mirrors datafile.CorruptFileError for record-level
// integrity failures discovered while decoding a record.
type CorruptFileError struct {
	Key int64
	Err error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("kvstore: record for key %d corrupt: %v", e.Key, e.Err)
}

func (e *CorruptFileError) Unwrap() error { return e.Err }
