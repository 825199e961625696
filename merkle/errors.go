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

package merkle

import (
	"errors"
	"fmt"
)

// Sentinel errors for the invariant-violation taxonomy in spec.md §7.
var (
	errReleased         = errors.New("merkle: node already released")
	errNotAtZero        = errors.New("merkle: explicit_release requires refcount == 0")
	errNotOwned         = errors.New("merkle: release_handle requires refcount > 0")
	errArchived         = errors.New("merkle: archived node refuses metadata-returning queries")
	errUndefinedRoute   = errors.New("merkle: route is undefined for a node with refcount > 1")
	errClassUnknown     = errors.New("merkle: class_id not registered")
	errTruncated        = errors.New("merkle: unexpected end of serialized data")
	errImmutable        = errors.New("merkle: node is immutable")
	errTooManyChildren  = errors.New("merkle: child count exceeds registered maximum")
	errNotEnoughChildren = errors.New("merkle: child count below registered minimum")
)

// RouteConflictError reports an attempt to move a shared node (spec.md
// §4.1): "a node shared by multiple parents cannot be moved — the
// caller must fast-copy instead".
type RouteConflictError struct {
	RefCount int32
}

func (e *RouteConflictError) Error() string {
	return fmt.Sprintf("merkle: route conflict, refcount=%d (fast-copy required)", e.RefCount)
}

// IllegalChildIndexError reports an out-of-range child index.
type IllegalChildIndexError struct {
	Lo, Hi, Got int
}

func (e *IllegalChildIndexError) Error() string {
	return fmt.Sprintf("merkle: illegal child index %d, want [%d,%d]", e.Got, e.Lo, e.Hi)
}

// IllegalChildTypeError reports a child of the wrong concrete type for
// its declared class/version.
type IllegalChildTypeError struct {
	Index           int
	Actual, Expected string
}

func (e *IllegalChildTypeError) Error() string {
	return fmt.Sprintf("merkle: child %d has type %s, expected %s", e.Index, e.Actual, e.Expected)
}

// ReferenceCountError wraps a refcount state-machine violation with
// the operation that triggered it.
type ReferenceCountError struct {
	Op  string
	Err error
}

func (e *ReferenceCountError) Error() string {
	return fmt.Sprintf("merkle: refcount error during %s: %v", e.Op, e.Err)
}

func (e *ReferenceCountError) Unwrap() error { return e.Err }
