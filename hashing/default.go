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

package hashing

import "crypto/sha512"

// Default is a stand-in Cryptographer used by tests, cmd/ exercisers,
// and callers that have no stronger requirement. Production callers
// are expected to supply their own (spec.md §1 names the cryptographic
// primitives as an external collaborator); this is not that collaborator,
// it is a default good enough to make the rest of the module testable.
type sha384Cryptographer struct{}

// Default is the package-level instance of sha384Cryptographer.
var Default Cryptographer = sha384Cryptographer{}

func (sha384Cryptographer) Digest(payload []byte) Hash {
	sum := sha512.Sum384(payload)
	return New(AlgSHA384, sum[:])
}

// RunningHash computes H_n = digest(H_{n-1} || hash(object_n)), the
// chain fold defined in the glossary under "Running hash".
func (c sha384Cryptographer) RunningHash(prev Hash, next Hash, alg Algorithm) Hash {
	buf := make([]byte, 0, 2*Size)
	buf = append(buf, prev.bytes[:]...)
	buf = append(buf, next.bytes[:]...)
	sum := sha512.Sum384(buf)
	return New(alg, sum[:])
}
