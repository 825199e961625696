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

// Command benchdiskmap times inserting a batch of fresh keys into an
// already-populated DiskHashMap, the same "insert into existing"
// measurement the teacher's benchs/main.go takes of tree insertion,
// retargeted at diskmap.Store and profiled with runtime/pprof the same
// way.
package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/hashgraph/hedera-platform-sub009/datafile"
	"github.com/hashgraph/hedera-platform-sub009/diskmap"
)

func main() {
	benchmarkInsertInExisting()
}

func randomKey() diskmap.BytesKey {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return diskmap.BytesKey(b)
}

func benchmarkInsertInExisting() {
	f, err := os.Create("cpu.prof")
	if err != nil {
		panic(err)
	}
	g, err := os.Create("mem.prof")
	if err != nil {
		panic(err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		panic(err)
	}
	defer pprof.StopCPUProfile()
	defer func() { _ = pprof.WriteHeapProfile(g) }()

	// Number of existing entries in the map.
	n := 100000
	// Entries to insert afterwards, timed.
	toInsert := 10000

	for round := 0; round < 4; round++ {
		keys := make([]diskmap.BytesKey, n)
		toInsertKeys := make([]diskmap.BytesKey, toInsert)
		for i := range keys {
			keys[i] = randomKey()
		}
		for i := range toInsertKeys {
			toInsertKeys[i] = randomKey()
		}
		fmt.Printf("Generated key set %d\n", round)

		for trial := 0; trial < 5; trial++ {
			dir, err := os.MkdirTemp("", "benchdiskmap-*")
			if err != nil {
				panic(err)
			}

			s, err := diskmap.Open(dir, uint64(n+toInsert))
			if err != nil {
				panic(err)
			}

			ws, err := s.BeginWriting(datafile.Header{})
			if err != nil {
				panic(err)
			}
			for i, k := range keys {
				if err := ws.Put(k, int64(i)); err != nil {
					panic(err)
				}
			}
			if err := ws.EndWriting(); err != nil {
				panic(err)
			}

			// Now insert the fresh batch and measure time.
			ws2, err := s.BeginWriting(datafile.Header{})
			if err != nil {
				panic(err)
			}
			start := time.Now()
			for i, k := range toInsertKeys {
				if err := ws2.Put(k, int64(n+i)); err != nil {
					panic(err)
				}
			}
			if err := ws2.EndWriting(); err != nil {
				panic(err)
			}
			elapsed := time.Since(start)
			fmt.Printf("Took %v to insert %d entries into an existing %d-entry map\n", elapsed, toInsert, n)

			os.RemoveAll(dir)
		}
	}
}
