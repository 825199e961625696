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
	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// HashCalculator digests an object synchronously if it hasn't already
// been hashed upstream, then forwards it (spec.md §4.8).
type HashCalculator struct {
	Crypto hashing.Cryptographer
	Next   Sink
}

func (h *HashCalculator) OnObject(obj *Object) error {
	if obj.Hash.IsNull() {
		obj.Hash = h.Crypto.Digest(obj.Payload)
	}
	return h.Next.OnObject(obj)
}

func (h *HashCalculator) SetRunningHash(rh hashing.Hash) error { return h.Next.SetRunningHash(rh) }
func (h *HashCalculator) Clear() error                         { return h.Next.Clear() }
func (h *HashCalculator) Close() error                         { return h.Next.Close() }

// RunningHashCalculator maintains the chained running hash across
// objects (spec.md §4.8, spec.md glossary "Running hash"):
// running = running_digest(running, t.hash, algo).
type RunningHashCalculator struct {
	Crypto  hashing.Cryptographer
	Alg     hashing.Algorithm
	Next    Sink
	running hashing.Hash
}

func (r *RunningHashCalculator) OnObject(obj *Object) error {
	r.running = r.Crypto.RunningHash(r.running, obj.Hash, r.Alg)
	obj.RunningHash = r.running
	return r.Next.OnObject(obj)
}

func (r *RunningHashCalculator) SetRunningHash(rh hashing.Hash) error {
	r.running = rh
	return r.Next.SetRunningHash(rh)
}

func (r *RunningHashCalculator) Clear() error {
	r.running = hashing.Null
	return r.Next.Clear()
}

func (r *RunningHashCalculator) Close() error { return r.Next.Close() }

// Running returns the current running hash.
func (r *RunningHashCalculator) Running() hashing.Hash { return r.running }
