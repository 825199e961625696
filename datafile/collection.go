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

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Collection owns a directory of monotonically-indexed data files plus
// the reader registry guarding their physical deletion (spec.md §4.7).
type Collection struct {
	dir    string
	Logger zerolog.Logger

	mu        sync.Mutex
	nextIndex uint32
	files     map[uint32]*File
	writing   *File
}

// Open scans dir for previously-closed data files, discards any
// abandoned ".tmp" file left by a crash mid-write (spec.md §7, "a
// failed end_writing ... abandons the partially written data file"),
// and returns a Collection ready to serve reads and accept one write
// session.
func Open(dir string) (*Collection, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	c := &Collection{dir: dir, files: make(map[uint32]*File)}
	for _, e := range entries {
		name := e.Name()
		switch filepath.Ext(name) {
		case ".tmp":
			_ = os.Remove(filepath.Join(dir, name))
		case ".data":
			var idx uint32
			if _, err := fmt.Sscanf(name, "%020d.data", &idx); err != nil {
				continue
			}
			f, err := openExisting(dir, idx)
			if err != nil {
				return nil, err
			}
			c.files[idx] = f
			if idx+1 > c.nextIndex {
				c.nextIndex = idx + 1
			}
		}
	}
	return c, nil
}

// StartWriting opens a new file at the next monotonic index. Only one
// write session may be open at a time.
func (c *Collection) StartWriting(header Header) (*File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writing != nil {
		return nil, ErrAlreadyWriting
	}
	f, err := create(c.dir, c.nextIndex, header)
	if err != nil {
		return nil, err
	}
	c.nextIndex++
	c.writing = f
	return f, nil
}

// EndWriting closes the in-progress write session, publishing the new
// file as an immutable, merge-eligible member of the collection.
func (c *Collection) EndWriting() (*File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writing == nil {
		return nil, ErrNotWriting
	}
	f := c.writing
	if err := f.endWriting(); err != nil {
		return nil, err
	}
	c.files[f.index] = f
	c.writing = nil
	return f, nil
}

// AbortWriting discards the in-progress write session without
// publishing it, per the "abandons the partially written data file"
// failure behavior in spec.md §7.
func (c *Collection) AbortWriting() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writing == nil {
		return ErrNotWriting
	}
	err := c.writing.discard()
	c.writing = nil
	return err
}

// Files returns the indices of every closed, currently-known file in
// ascending order.
func (c *Collection) Files() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint32, 0, len(c.files))
	for idx := range c.files {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Acquire hands out a shared reader handle to the file at index. It
// fails once the file has been retired by a merge (spec.md §4.7,
// "no reader can acquire them").
func (c *Collection) Acquire(index uint32) (*File, error) {
	c.mu.Lock()
	f, ok := c.files[index]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("datafile: no such file %d", index)
	}
	if f.isRetired() {
		return nil, ErrRetired
	}
	f.acquire()
	return f, nil
}

// Release returns a reader handle. If the file has already been
// retired and this was the last outstanding handle, it is physically
// deleted.
func (c *Collection) Release(f *File) error {
	if f.release() == 0 && f.isRetired() {
		return c.deleteRetired(f)
	}
	return nil
}

func (c *Collection) deleteRetired(f *File) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.refCount.Load() != 0 || !f.isRetired() {
		return nil
	}
	delete(c.files, f.index)
	return f.remove()
}

// Path returns the filesystem path of a closed file, for callers (like
// a snapshot) that need to hard-link or copy it directly.
func (c *Collection) Path(index uint32) string {
	return filepath.Join(c.dir, fileName(index))
}

// Header returns the header of a closed file without acquiring a
// reader handle, for callers (like merge filters) that only need
// metadata.
func (c *Collection) Header(index uint32) (Header, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.files[index]
	if !ok {
		return Header{}, false
	}
	return f.header, true
}
