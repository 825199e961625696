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
	"errors"
	"time"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// ErrNoDownstream is returned by NewMultiStream when called with zero
// sinks (spec.md §4.8: "construction requires at least one downstream
// (not null)").
var ErrNoDownstream = errors.New("objstream: multi-stream requires at least one downstream sink")

// Object is the unit the pipeline moves: a class-tagged, versioned
// payload that accumulates a self hash and a running hash as it flows
// through the sink chain (spec.md §4.8, §6).
type Object struct {
	ClassID     int64
	Version     int32
	Payload     []byte
	Timestamp   time.Time
	Hash        hashing.Hash
	RunningHash hashing.Hash
}

// Sink is one stage of the pipeline (spec.md §4.8): "Composable sinks
// implementing on_object(T), set_running_hash(Hash), clear(), close()".
type Sink interface {
	OnObject(obj *Object) error
	SetRunningHash(h hashing.Hash) error
	Clear() error
	Close() error
}
