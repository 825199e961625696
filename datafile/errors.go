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
	"fmt"
)

var (
	// ErrNotWriting is returned by File.Append and by the Collection's
	// EndWriting/AbortWriting when the file isn't currently open for
	// writing.
	ErrNotWriting = errors.New("datafile: file is not open for writing")
	// ErrAlreadyWriting is returned by Collection.StartWriting when a
	// write session is already in progress.
	ErrAlreadyWriting = errors.New("datafile: already open for writing")
	// ErrRetired is returned when an operation is attempted against a
	// file that merge has already retired.
	ErrRetired = errors.New("datafile: file has been retired")
	// ErrHeld reports that a file's reader refcount is still above
	// zero. No function in this package returns it: deletion of a
	// retired file simply waits for its last Release.
	ErrHeld = errors.New("datafile: file is still held by a reader")
)

// CorruptFileError reports a data-file integrity failure discovered at
// read time: a truncated header, an unexpected EOF mid-record, or a
// header field outside a sane range (spec.md §7, "Integrity errors").
// The error is only returned: the file is not retired or moved aside,
// and stays in the collection where it can still be acquired.
type CorruptFileError struct {
	Index  uint32
	Offset int64
	Err    error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("datafile: file %d corrupt at offset %d: %v", e.Index, e.Offset, e.Err)
}

func (e *CorruptFileError) Unwrap() error { return e.Err }
