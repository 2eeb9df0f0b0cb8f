package xar

import (
	"fmt"
	"io"
	"os"

	"github.com/meigma/xar/internal/sizing"
)

// fileSource wraps *os.File to implement RangeSource.
// The size is cached at construction; reads use ReadAt and never move the
// file offset, so concurrent ranges are safe.
type fileSource struct {
	file *os.File
	size int64
}

// NewFileRangeSource returns a RangeSource reading from an open file.
// The caller keeps ownership of f.
func NewFileRangeSource(f *os.File) (RangeSource, error) {
	return openFileSource(f)
}

func openFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive file: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

// ReadRange returns exactly length bytes starting at off.
func (s *fileSource) ReadRange(off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("read range %d+%d: negative offset or length", off, length)
	}
	if length > s.size-off {
		return nil, fmt.Errorf("%w: range %d+%d beyond file size %d", ErrShortRead, off, length, s.size)
	}
	return io.NopCloser(sizing.ExactReader(io.NewSectionReader(s.file, off, length), length)), nil
}

// Size returns the total size of the file.
func (s *fileSource) Size() int64 {
	return s.size
}

// ArchiveFile is an Archive backed by a local file.
// Close must be called to release the file handle.
type ArchiveFile struct {
	*Archive
	file *os.File
}

// Close closes the underlying file.
func (af *ArchiveFile) Close() error {
	if af.file == nil {
		return nil
	}
	err := af.file.Close()
	af.file = nil
	return err
}

// OpenFile opens the archive at path for random access.
//
// Only the header and TOC are read up front; payloads are read on demand.
// The returned ArchiveFile must be closed to release file resources.
func OpenFile(path string, opts ...Option) (*ArchiveFile, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}

	src, err := openFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	a, err := Open(src, opts...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	return &ArchiveFile{Archive: a, file: f}, nil
}

// Interface compliance.
var (
	_ RangeSource                = (*fileSource)(nil)
	_ interface{ Close() error } = (*ArchiveFile)(nil)
)
