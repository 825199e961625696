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

// Command reconcilefuzz builds two random trees that differ in a
// handful of leaves, runs one reconciliation session between them over
// a real TCP loopback connection, and panics if the learner's tree
// does not end up byte-for-byte identical to the teacher's. Run
// indefinitely (Ctrl-C to stop) the way the teacher's
// cmd/fuzzinsertstemordered fuzzes tree construction: build, compare,
// repeat.
package main

import (
	"crypto/rand"
	"fmt"
	"net"
	"time"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
	"github.com/hashgraph/hedera-platform-sub009/merkle"
	"github.com/hashgraph/hedera-platform-sub009/reconcile"
)

const (
	fuzzLeafClass     uint64 = 1
	fuzzInternalClass uint64 = 100
	leafCount                = 64
	diffCount                = 6
)

type fuzzPayload struct {
	version uint32
	data    []byte
}

func (p *fuzzPayload) ClassID() uint64 { return fuzzLeafClass }
func (p *fuzzPayload) Version() uint32 { return p.version }
func (p *fuzzPayload) SerializeSelf() ([]byte, error) {
	return append([]byte(nil), p.data...), nil
}

func registry() *merkle.ClassRegistry {
	reg := merkle.NewClassRegistry()
	reg.RegisterLeaf(fuzzLeafClass, func(version uint32, data []byte) (merkle.Payload, error) {
		return &fuzzPayload{version: version, data: data}, nil
	})
	reg.RegisterInternal(fuzzInternalClass, func(version uint32, minChildren, maxChildren int) (*merkle.InternalNode, error) {
		return merkle.NewInternal(fuzzInternalClass, version, minChildren, maxChildren), nil
	})
	return reg
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

func buildTree(reg *merkle.ClassRegistry, leaves [][]byte) *merkle.Tree {
	root := merkle.NewInternal(fuzzInternalClass, 1, 0, leafCount)
	for i, data := range leaves {
		payload := &fuzzPayload{version: 1, data: append([]byte(nil), data...)}
		if err := root.SetChild(i, merkle.NewLeaf(payload)); err != nil {
			panic(err)
		}
	}
	return merkle.NewTree(root, reg)
}

func dialedPair() (net.Conn, net.Conn) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	defer ln.Close()

	serverCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			panic(err)
		}
		serverCh <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		panic(err)
	}
	return <-serverCh, client
}

func main() {
	crypto := hashing.Default

	for attempt := 0; ; attempt++ {
		fmt.Println("attempt #", attempt)

		leaves := make([][]byte, leafCount)
		for i := range leaves {
			leaves[i] = randomBytes(32)
		}

		teacherLeaves := make([][]byte, leafCount)
		copy(teacherLeaves, leaves)
		learnerLeaves := make([][]byte, leafCount)
		copy(learnerLeaves, leaves)
		for i := 0; i < diffCount; i++ {
			idx := i * (leafCount / diffCount)
			learnerLeaves[idx] = randomBytes(32)
		}

		reg := registry()
		teacherTree := buildTree(reg, teacherLeaves)
		learnerTree := buildTree(registry(), learnerLeaves)

		if _, err := merkle.Rehash(teacherTree.Root(), crypto, merkle.RehashOptions{}); err != nil {
			panic(err)
		}
		if _, err := merkle.Rehash(learnerTree.Root(), crypto, merkle.RehashOptions{}); err != nil {
			panic(err)
		}

		teacherConn, learnerConn := dialedPair()

		teacher := reconcile.NewTeacher(crypto, teacherTree, teacherConn)
		learner := reconcile.NewLearner(crypto, reg, learnerTree, learnerConn)

		errCh := make(chan error, 2)
		go func() { errCh <- teacher.Run() }()
		go func() { errCh <- learner.Run() }()

		for i := 0; i < 2; i++ {
			select {
			case err := <-errCh:
				if err != nil {
					panic(err)
				}
			case <-time.After(10 * time.Second):
				panic("reconciliation session timed out")
			}
		}
		teacherConn.Close()
		learnerConn.Close()

		teacherHash, err := merkle.Rehash(teacherTree.Root(), crypto, merkle.RehashOptions{})
		if err != nil {
			panic(err)
		}
		learnerHash, err := merkle.Rehash(learnerTree.Root(), crypto, merkle.RehashOptions{})
		if err != nil {
			panic(err)
		}
		if !teacherHash.Equal(learnerHash) {
			panic("differing root hashes after reconciliation")
		}
	}
}
