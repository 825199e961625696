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

import "sync/atomic"

// PausePermit is a single-holder gate that MergeFiles holds for the
// length of a merge: a second merge sharing the permit backs off with
// ErrMergePaused (spec.md §4.7, merge's "pause permit is clear").
// Neither diskmap's nor kvstore's snapshot takes it, so a merge and a
// snapshot on the same store are not kept apart by it. It is not
// re-entrant.
type PausePermit struct {
	held atomic.Bool
}

// NewPausePermit returns a permit in the unheld state.
func NewPausePermit() *PausePermit { return &PausePermit{} }

// TryAcquire attempts to take the permit, returning false if another
// holder already has it.
func (p *PausePermit) TryAcquire() bool { return p.held.CompareAndSwap(false, true) }

// Release gives the permit back up.
func (p *PausePermit) Release() { p.held.Store(false) }

// Held reports whether the permit is currently taken, for callers that
// only need to check ("pause permit is clear") without acquiring.
func (p *PausePermit) Held() bool { return p.held.Load() }
