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

package reconcile

import (
	"errors"
	"fmt"
)

// ErrArchived is returned by a view or query handler asked to serve a
// metadata query against an archived subtree (spec.md §9: "an archived
// subtree participates in hash-based diff but refuses metadata-
// returning queries"). The subtree's hash still participates in the
// structural diff; only queries that would return its content fail.
var ErrArchived = errors.New("reconcile: archived subtree refuses metadata query")

var (
	errNoView        = errors.New("reconcile: no view registered for class")
	errUnexpectedMsg = errors.New("reconcile: unexpected message kind on the wire")
	errReadTimeout   = errors.New("reconcile: timed out waiting for a response")
)

// ReconciliationError wraps any failure that aborts a session: stream
// I/O, deserialization, or a read timeout (spec.md §4.4). A failed
// reconciliation leaves the learner's tree unchanged (spec.md §7) — the
// caller discards the learner's in-progress Tree and retries against a
// fresh one built from its last durable snapshot.
type ReconciliationError struct {
	Route string
	Err   error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile: session aborted at route %s: %v", e.Route, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
