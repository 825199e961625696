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

import "github.com/hashgraph/hedera-platform-sub009/hashing"

// ViewProvider lets an application class opt a subtree out of the
// default structural diff and handle its own reconciliation (spec.md
// §4.4, CUSTOM_VIEW_ROOT). It is registered per class_id on both the
// Teacher and the Learner under the same ViewID.
type ViewProvider interface {
	// Export produces the opaque bytes the teacher sends for the
	// subtree rooted at route.
	Export(route hashing.Route, node interface{}) ([]byte, error)
	// Import applies previously-exported bytes on the learner side,
	// returning the root node of the reconstructed subtree.
	Import(route hashing.Route, data []byte) (interface{}, error)
}
