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
	"sync"
	"sync/atomic"
)

// fileName renders the on-disk name for file index. Zero-padded
// decimal so that directory listing sorted by name is chronological
// (spec.md §6, "Reserved values").
func fileName(index uint32) string {
	return fmt.Sprintf("%020d.data", index)
}

func tmpFileName(index uint32) string {
	return fileName(index) + ".tmp"
}

// File is one entry in a Collection's directory: an immutable,
// append-only byte log once closed for writing (spec.md §3, DataFile).
type File struct {
	index  uint32
	dir    string
	header Header

	mu       sync.Mutex
	w        *os.File // non-nil only while open for writing
	writable bool
	offset   uint32

	refCount atomic.Int32
	retired  atomic.Bool
}

// create starts a new file at the next monotonic index, writing its
// header and leaving it open for Append. The file is written under a
// ".tmp" name until EndWriting renames it into its permanent,
// discoverable name — readers never see a half-written file.
func create(dir string, index uint32, header Header) (*File, error) {
	header.FormatVersion = FormatVersion
	p := filepath.Join(dir, tmpFileName(index))
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	hb := header.Marshal()
	if _, err := f.Write(hb); err != nil {
		f.Close()
		os.Remove(p)
		return nil, err
	}
	df := &File{index: index, dir: dir, header: header, w: f, writable: true, offset: uint32(len(hb))}
	return df, nil
}

// openExisting opens a previously-closed, immutable file for reading.
func openExisting(dir string, index uint32) (*File, error) {
	p := filepath.Join(dir, fileName(index))
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, &CorruptFileError{Index: index, Offset: 0, Err: err}
	}
	header, _, err := ParseHeader(buf)
	if err != nil {
		return nil, &CorruptFileError{Index: index, Offset: 0, Err: err}
	}
	return &File{index: index, dir: dir, header: header, offset: uint32(info.Size())}, nil
}

// Index returns this file's monotonic index.
func (f *File) Index() uint32 { return f.index }

// Header returns the file's immutable header.
func (f *File) Header() Header { return f.header }

// Append writes one record to a file still open for writing and
// returns the Location it was written at. Returns ErrNotWriting once
// EndWriting has closed the file.
func (f *File) Append(record []byte) (Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.writable {
		return 0, ErrNotWriting
	}
	loc := NewLocation(f.index, f.offset)
	if _, err := f.w.Write(record); err != nil {
		return 0, err
	}
	f.offset += uint32(len(record))
	return loc, nil
}

// ReadAt reads n bytes at the given in-file offset, opening a fresh
// read-only descriptor per call — data files are immutable once
// closed for writing, so concurrent reads need no coordination with
// each other or with a long-lived handle.
func (f *File) ReadAt(offset uint32, n int) ([]byte, error) {
	p := filepath.Join(f.dir, fileName(f.index))
	rf, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer rf.Close()
	buf := make([]byte, n)
	if _, err := rf.ReadAt(buf, int64(offset)); err != nil {
		return nil, &CorruptFileError{Index: f.index, Offset: int64(offset), Err: err}
	}
	return buf, nil
}

// Size returns the current byte length of the file, including its
// header.
func (f *File) Size() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offset
}

// endWriting flushes, fsyncs, and renames the file into its permanent
// name, making it immutable and eligible for merge (spec.md §3,
// DataFile lifecycle).
func (f *File) endWriting() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.writable {
		return ErrNotWriting
	}
	if err := f.w.Sync(); err != nil {
		return err
	}
	if err := f.w.Close(); err != nil {
		return err
	}
	f.writable = false
	from := filepath.Join(f.dir, tmpFileName(f.index))
	to := filepath.Join(f.dir, fileName(f.index))
	return os.Rename(from, to)
}

// discard abandons a file that failed partway through writing,
// removing its temporary backing storage (spec.md §7, "a failed
// end_writing ... abandons the partially written data file").
func (f *File) discard() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.w != nil {
		f.w.Close()
		f.w = nil
	}
	f.writable = false
	return os.Remove(filepath.Join(f.dir, tmpFileName(f.index)))
}

// acquire bumps the reader refcount and returns the new value.
func (f *File) acquire() int32 { return f.refCount.Add(1) }

// release drops the reader refcount and returns the new value.
func (f *File) release() int32 { return f.refCount.Add(-1) }

// retire marks the file as no longer acquirable by new readers. It
// does not delete the underlying file — existing readers may still
// hold it (spec.md §3, DataFile: "deleted only after ... no reader
// holds it").
func (f *File) retire() { f.retired.Store(true) }

// isRetired reports whether merge has already retired this file.
func (f *File) isRetired() bool { return f.retired.Load() }

// remove deletes the file's backing storage. Callers must have
// confirmed the file is retired and its refcount has reached zero.
func (f *File) remove() error {
	return os.Remove(filepath.Join(f.dir, fileName(f.index)))
}
