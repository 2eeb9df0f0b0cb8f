// Package testutil provides in-memory range sources and filesystem fixtures for tests.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/meigma/xar/internal/xartype"
)

// MemorySource is an in-memory range source that records every range requested.
type MemorySource struct {
	data []byte

	mu     sync.Mutex
	ranges [][2]int64
}

// NewMemorySource returns a range source backed by data.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

// ReadRange returns exactly length bytes at off, or ErrShortRead.
func (m *MemorySource) ReadRange(off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("read range %d+%d: negative offset or length", off, length)
	}
	if length > int64(len(m.data))-off {
		return nil, fmt.Errorf("%w: range %d+%d beyond %d bytes", xartype.ErrShortRead, off, length, len(m.data))
	}
	m.mu.Lock()
	m.ranges = append(m.ranges, [2]int64{off, length})
	m.mu.Unlock()
	return io.NopCloser(bytes.NewReader(m.data[off : off+length])), nil
}

// Size returns the total size of the backing data.
func (m *MemorySource) Size() int64 {
	return int64(len(m.data))
}

// Bytes returns the backing slice for tests that need to mutate data.
func (m *MemorySource) Bytes() []byte {
	return m.data
}

// Ranges returns the (offset, length) pairs requested so far.
func (m *MemorySource) Ranges() [][2]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][2]int64, len(m.ranges))
	copy(out, m.ranges)
	return out
}

// WriteTree creates files below dir from a path to content map.
// Paths use forward slashes; parent directories are created as needed.
func WriteTree(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}
