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
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// RehashOptions tunes the parallel bottom-up rehash (spec.md §4.2,
// §5 "the tree rehash parallelizes across sibling subtrees via a
// thread pool").
type RehashOptions struct {
	// MaxParallelism caps the number of concurrent subtree rehashes.
	// Zero means runtime.GOMAXPROCS(0).
	MaxParallelism int
}

// Rehash walks the tree post-order, computing and caching the hash of
// every node whose cache is currently invalid (spec.md §4.1). Sibling
// subtrees are rehashed concurrently, bounded by a shared token pool,
// mirroring "the tree rehash parallelizes across sibling subtrees via
// a thread pool" (spec.md §5). A failed rehash leaves the affected
// subtree's cache invalid so a retry recomputes it (spec.md §7).
func Rehash(root Node, crypto hashing.Cryptographer, opts RehashOptions) (hashing.Hash, error) {
	limit := opts.MaxParallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	tokens := make(chan struct{}, limit)
	if err := rehashSubtree(tokens, root, crypto); err != nil {
		return hashing.Hash{}, err
	}
	return root.Hash(crypto), nil
}

// rehashSubtree hashes n's children (each potentially offloaded to the
// shared token pool) and then, once every child has a valid hash,
// computes n's own hash inline. It returns once n.Hash() is safe to
// call, i.e. it does not return early the way a pure fire-and-forget
// fan-out would.
func rehashSubtree(tokens chan struct{}, n Node, crypto hashing.Cryptographer) error {
	if n == nil {
		return nil
	}
	in, ok := n.(*InternalNode)
	if !ok {
		n.Hash(crypto)
		return nil
	}

	childGroup := new(errgroup.Group)
	for i := 0; i < in.ChildCount(); i++ {
		child := in.Child(i)
		if child == nil {
			continue
		}
		select {
		case tokens <- struct{}{}:
			childGroup.Go(func() error {
				defer func() { <-tokens }()
				return rehashSubtree(tokens, child, crypto)
			})
		default:
			// Pool exhausted: rehash this child on the calling
			// goroutine instead of blocking for a token.
			if err := rehashSubtree(tokens, child, crypto); err != nil {
				return err
			}
		}
	}
	if err := childGroup.Wait(); err != nil {
		return err
	}
	in.Hash(crypto)
	return nil
}
