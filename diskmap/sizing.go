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

package diskmap

import (
	"github.com/holiman/uint256"
)

// avgEntriesPerBucket and loadFactor are the sizing constants named in
// spec.md §4.5.
const (
	avgEntriesPerBucket = 20
	loadFactorNum       = 3 // loadFactor = 3/5 = 0.6
	loadFactorDen       = 5
)

// ComputeBucketCounts applies spec.md §4.5's sizing formula:
// min_buckets = ceil(map_size / LF / AVG), num_buckets =
// next_power_of_two(min_buckets). Arithmetic runs through uint256 so
// that an operator-supplied mapSize in the billions is provably
// checked against uint32 bucket-count overflow rather than silently
// wrapping — ErrMapFull surfaces the degenerate case spec.md §7 calls
// "not expected by design but possible".
func ComputeBucketCounts(mapSize uint64) (minBuckets, numBuckets uint32, err error) {
	size := uint256.NewInt(mapSize)
	den := uint256.NewInt(avgEntriesPerBucket * loadFactorNum)
	num := new(uint256.Int).Mul(size, uint256.NewInt(loadFactorDen))

	q := new(uint256.Int)
	r := new(uint256.Int)
	q.DivMod(num, den, r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	if q.IsZero() {
		q.SetUint64(1)
	}
	if !q.IsUint64() || q.Uint64() >= (1<<32) {
		return 0, 0, ErrMapFull
	}
	minBuckets = uint32(q.Uint64())

	n := nextPowerOfTwo(minBuckets)
	if n == 0 {
		return 0, 0, ErrMapFull
	}
	return minBuckets, n, nil
}

func nextPowerOfTwo(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	if v&(v-1) == 0 {
		return v
	}
	n := uint256.NewInt(1)
	for n.Uint64() < uint64(v) {
		n = new(uint256.Int).Lsh(n, 1)
		if !n.IsUint64() || n.Uint64() > (1<<32) {
			return 0
		}
	}
	return uint32(n.Uint64())
}

// BucketIndex computes the bucket a key hash falls into (spec.md
// §4.5: "(num_buckets - 1) & key.hash()").
func BucketIndex(numBuckets uint32, keyHash uint32) uint32 {
	return (numBuckets - 1) & keyHash
}
