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
	"github.com/hashgraph/hedera-platform-sub009/hashing"
)

// MultiStream fans out to N downstream sinks in order (spec.md §4.8:
// "fans out to N downstream sinks; set_running_hash, clear, close
// propagate to all"). Ordering across sinks is preserved by calling
// each sequentially on the caller's goroutine — cross-sink parallelism
// is only introduced at a QueueThreadStream boundary (spec.md §5).
type MultiStream struct {
	sinks []Sink
}

// NewMultiStream constructs a MultiStream over a non-empty sink list.
func NewMultiStream(sinks ...Sink) (*MultiStream, error) {
	if len(sinks) == 0 {
		return nil, ErrNoDownstream
	}
	cp := make([]Sink, len(sinks))
	copy(cp, sinks)
	return &MultiStream{sinks: cp}, nil
}

func (m *MultiStream) OnObject(obj *Object) error {
	for _, s := range m.sinks {
		if err := s.OnObject(obj); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiStream) SetRunningHash(h hashing.Hash) error {
	for _, s := range m.sinks {
		if err := s.SetRunningHash(h); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiStream) Clear() error {
	for _, s := range m.sinks {
		if err := s.Clear(); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiStream) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
