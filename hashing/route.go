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

import "fmt"

// Route is an ordered sequence of non-negative child indices locating
// a node relative to the tree root (spec.md §3, glossary "Route"). The
// empty Route addresses the root. Routes are never mutated in place;
// every "mutation" in merkle produces a new Route value.
type Route struct {
	indices []int32
}

// RootRoute is the empty route, addressing the tree root.
func RootRoute() Route { return Route{} }

// Child returns the route obtained by descending into child index i.
func (r Route) Child(i int) Route {
	out := make([]int32, len(r.indices)+1)
	copy(out, r.indices)
	out[len(r.indices)] = int32(i)
	return Route{indices: out}
}

// Parent returns the route with the last index dropped, and false if r
// is already the root route.
func (r Route) Parent() (Route, bool) {
	if len(r.indices) == 0 {
		return Route{}, false
	}
	return Route{indices: r.indices[:len(r.indices)-1]}, true
}

// Depth is the number of indices in the route (0 for the root).
func (r Route) Depth() int { return len(r.indices) }

// IsRoot reports whether r addresses the tree root.
func (r Route) IsRoot() bool { return len(r.indices) == 0 }

// Index returns the child index at the given depth (0-based from the
// root). It panics if depth is out of range, matching Route's
// "never mutated, always complete" invariant.
func (r Route) Index(depth int) int { return int(r.indices[depth]) }

// IsAncestorOf reports whether r is a strict prefix of other, i.e. a
// node at r is an ancestor of a node at other.
func (r Route) IsAncestorOf(other Route) bool {
	if len(r.indices) >= len(other.indices) {
		return false
	}
	for i, v := range r.indices {
		if other.indices[i] != v {
			return false
		}
	}
	return true
}

// IsDescendantOf reports whether r is a strict extension of other.
func (r Route) IsDescendantOf(other Route) bool { return other.IsAncestorOf(r) }

// Compare gives Route the total lexicographic order required by
// spec.md §3: shorter routes that are a prefix of a longer one sort
// before it, otherwise the first differing index decides.
func (r Route) Compare(o Route) int {
	n := len(r.indices)
	if len(o.indices) < n {
		n = len(o.indices)
	}
	for i := 0; i < n; i++ {
		if r.indices[i] != o.indices[i] {
			if r.indices[i] < o.indices[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(r.indices) < len(o.indices):
		return -1
	case len(r.indices) > len(o.indices):
		return 1
	default:
		return 0
	}
}

// Equal reports whether r and o address the same node.
func (r Route) Equal(o Route) bool { return r.Compare(o) == 0 }

// String renders a Route as "/i0/i1/...", matching the debug-printing
// need called out in spec.md §4.2.
func (r Route) String() string {
	if r.IsRoot() {
		return "/"
	}
	s := ""
	for _, i := range r.indices {
		s += fmt.Sprintf("/%d", i)
	}
	return s
}
