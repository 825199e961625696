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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// StreamFormatVersion and SigFormatVersion are the only on-disk stream
// file and signature file layouts this package understands (spec.md
// §6).
const (
	StreamFormatVersion int32 = 1
	SigFormatVersion    int32 = 1

	streamFileExt = ".rcd"
	sigFileExt    = ".rcd_sig"
)

// ErrNoSigner is returned by NewTimestampStreamFileWriter without a
// Signer, since every rotated file requires a companion signature
// (spec.md §4.8).
var ErrNoSigner = errors.New("objstream: a Signer is required")

// TimestampStreamFileWriter rotates files by wall-clock window derived
// from each object's timestamp, writing the self-describing stream
// format and a signed companion file on every rotation or close
// (spec.md §4.8, §6). It is a terminal sink: Next is not consulted.
type TimestampStreamFileWriter struct {
	Dir                   string
	WindowMillis          int64
	Signer                hashing.Signer
	SignatureAlgorithmTag int32
	FileHeader            []byte
	SigHeader             []byte
	WaitForCompleteWindow bool
	Logger                zerolog.Logger

	mu             sync.Mutex
	haveBaseline   bool
	baselineWindow int64
	suppressed     bool
	haveOpenFile   bool
	windowStart    int64
	buf            bytes.Buffer
	startHash      hashing.Hash
	endHash        hashing.Hash
	nextStartHash  hashing.Hash

	// ClosedFiles records every stream file path written, for callers
	// (tests, the verification iterator) that need to locate them.
	ClosedFiles []string
}

// NewTimestampStreamFileWriter constructs a writer rooted at dir.
func NewTimestampStreamFileWriter(dir string, windowMillis int64, signer hashing.Signer) (*TimestampStreamFileWriter, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}
	if windowMillis <= 0 {
		return nil, errors.New("objstream: window must be positive")
	}
	return &TimestampStreamFileWriter{
		Dir:          dir,
		WindowMillis: windowMillis,
		Signer:       signer,
		FileHeader:   []byte{5},
		SigHeader:    []byte{5},
	}, nil
}

func windowStartMillis(ts time.Time, windowMillis int64) int64 {
	ms := ts.UnixMilli()
	return ms - (ms % windowMillis)
}

func (w *TimestampStreamFileWriter) beginWindow(ws int64) {
	w.windowStart = ws
	w.buf.Reset()
	w.startHash = w.nextStartHash
	w.endHash = w.nextStartHash
	w.haveOpenFile = true
}

// OnObject appends obj to the current window's buffer, rotating to a
// new file first if obj's timestamp has crossed into a new window.
func (w *TimestampStreamFileWriter) OnObject(obj *Object) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ws := windowStartMillis(obj.Timestamp, w.WindowMillis)

	if !w.haveBaseline {
		w.haveBaseline = true
		w.baselineWindow = ws
		w.suppressed = w.WaitForCompleteWindow
		if !w.suppressed {
			w.beginWindow(ws)
		}
	}

	if w.suppressed {
		if ws == w.baselineWindow {
			// Still inside the partial window that was in progress
			// when this writer started; drop it so that resumed peers
			// emit byte-identical files from the next clean boundary
			// (spec.md §4.8, "wait for complete window").
			return nil
		}
		w.suppressed = false
		w.beginWindow(ws)
	} else if !w.haveOpenFile {
		w.beginWindow(ws)
	} else if ws != w.windowStart {
		if err := w.rotate(); err != nil {
			return err
		}
		w.beginWindow(ws)
	}

	rec := encodeObjectRecord(obj)
	w.buf.Write(rec)
	w.endHash = obj.RunningHash
	return nil
}

// SetRunningHash seeds the running hash the next opened file will
// record as its start hash, e.g. after reconciling with a peer.
func (w *TimestampStreamFileWriter) SetRunningHash(h hashing.Hash) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextStartHash = h
	return nil
}

// Clear abandons any in-progress (unflushed) window without writing
// it.
func (w *TimestampStreamFileWriter) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.haveOpenFile = false
	w.buf.Reset()
	return nil
}

// Close rotates out whatever window is currently open.
func (w *TimestampStreamFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.haveOpenFile {
		return nil
	}
	return w.rotate()
}

// rotate flushes the current window to a stream file plus its
// signature companion, then marks no file open (caller must
// beginWindow again before further writes).
func (w *TimestampStreamFileWriter) rotate() error {
	path, err := w.writeStreamFile(w.windowStart, w.startHash, w.buf.Bytes(), w.endHash)
	if err != nil {
		return err
	}
	if err := w.writeSignatureFile(path, w.endHash); err != nil {
		return err
	}
	w.nextStartHash = w.endHash
	w.haveOpenFile = false
	w.ClosedFiles = append(w.ClosedFiles, path)
	w.Logger.Debug().Str("path", path).Msg("rotated stream file")
	return nil
}

func fileName(windowStart int64) string {
	return time.UnixMilli(windowStart).UTC().Format("2006-01-02T15_04_05.000Z") + streamFileExt
}

func (w *TimestampStreamFileWriter) writeStreamFile(windowStart int64, start hashing.Hash, objBytes []byte, end hashing.Hash) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.Dir, fileName(windowStart))
	tmp := path + ".tmp"

	var buf bytes.Buffer
	buf.Write(w.FileHeader)
	var verBuf [4]byte
	hashing.PutUint32(verBuf[:], uint32(StreamFormatVersion))
	buf.Write(verBuf[:])
	buf.Write(start.Marshal())
	buf.Write(objBytes)
	buf.Write(end.Marshal())

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}

func (w *TimestampStreamFileWriter) writeSignatureFile(streamPath string, end hashing.Hash) error {
	sig, err := w.Signer.Sign(end)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.Write(w.SigHeader)
	var verBuf [4]byte
	hashing.PutUint32(verBuf[:], uint32(SigFormatVersion))
	buf.Write(verBuf[:])
	var tagBuf [4]byte
	hashing.PutUint32(tagBuf[:], uint32(w.SignatureAlgorithmTag))
	buf.Write(tagBuf[:])
	var lenBuf [4]byte
	hashing.PutUint32(lenBuf[:], uint32(len(sig)))
	buf.Write(lenBuf[:])
	buf.Write(sig)

	path := streamPath + sigFileExt
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// encodeObjectRecord serializes one object record: class_id:i64,
// version:i32, payload_len:i32, payload bytes (spec.md §4.8's
// "class_id ∥ version ∥ payload", with an explicit length prefix so a
// reader can frame records without external bookkeeping).
func encodeObjectRecord(obj *Object) []byte {
	out := make([]byte, 8+4+4+len(obj.Payload))
	hashing.PutUint64(out[0:8], uint64(obj.ClassID))
	hashing.PutUint32(out[8:12], uint32(obj.Version))
	hashing.PutUint32(out[12:16], uint32(len(obj.Payload)))
	copy(out[16:], obj.Payload)
	return out
}

func decodeObjectRecord(data []byte) (classID int64, version int32, payload []byte, rest []byte, err error) {
	if len(data) < 16 {
		return 0, 0, nil, nil, errors.New("objstream: truncated object record")
	}
	classID = int64(hashing.Uint64(data[0:8]))
	version = int32(hashing.Uint32(data[8:12]))
	n := int(hashing.Uint32(data[12:16]))
	if 16+n > len(data) {
		return 0, 0, nil, nil, errors.New("objstream: truncated object payload")
	}
	payload = append([]byte(nil), data[16:16+n]...)
	return classID, version, payload, data[16+n:], nil
}
