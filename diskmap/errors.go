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
	"errors"
	"fmt"
)

var (
	// ErrWriteInProgress is returned by BeginWriting when a session is
	// already open (spec.md §4.5: "only one session at a time").
	ErrWriteInProgress = errors.New("diskmap: a write session is already open")
	// ErrThreadAffinity is returned when EndWriting is called on a
	// *WriteSession other than the one BeginWriting handed out
	// (Put and Delete do not check) — this module's analogue of the "writer thread must
	// match begin_writing thread" invariant (spec.md §4.5), enforced
	// by session identity rather than an OS thread id.
	ErrThreadAffinity = errors.New("diskmap: write session used from the wrong caller")
	// ErrSessionClosed is returned by Put/Delete/EndWriting after
	// EndWriting has already completed the session.
	ErrSessionClosed = errors.New("diskmap: write session already ended")
	// ErrMapFull is returned when the bucket index cannot grow to
	// accommodate the requested sizing (spec.md §7: "not expected by
	// design but possible").
	ErrMapFull = errors.New("diskmap: map is full")
	// ErrSnapshotInFlight is returned by SnapshotBegin when a snapshot
	// is already open (Open Question decision: snapshots are single-flight).
	ErrSnapshotInFlight = errors.New("diskmap: a snapshot is already in progress")
	// ErrMergeAborted is returned by Merge when the merge filter
	// selects no eligible files. A merge that finds the pause permit
	// held returns datafile.ErrMergePaused instead.
	ErrMergeAborted = errors.New("diskmap: merge aborted")
	// ErrNotFound is returned by Get for an absent or deleted key.
	ErrNotFound = errors.New("diskmap: key not found")

	errTruncatedBucket = errors.New("diskmap: truncated bucket record")
)

// CorruptFileError mirrors datafile.CorruptFileError for bucket-level
// integrity failures discovered while decoding a bucket record
// (spec.md §7, "bucket header inconsistent").
type CorruptFileError struct {
	BucketIndex uint32
	Err         error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("diskmap: bucket %d corrupt: %v", e.BucketIndex, e.Err)
}

func (e *CorruptFileError) Unwrap() error { return e.Err }
