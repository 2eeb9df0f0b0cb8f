// Package payload reads heap payloads from a range source and decodes them.
package payload

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/xar/internal/sizing"
	"github.com/meigma/xar/internal/xartype"
)

// Source is the range source a Reader pulls payload bytes from.
type Source interface {
	ReadRange(off, length int64) (io.ReadCloser, error)
	Size() int64
}

// Section locates one payload. Offset is absolute within the source.
type Section struct {
	Path     string
	Offset   uint64
	Length   uint64
	Size     uint64
	Encoding xartype.Encoding
}

// Reader opens decoded payload streams.
type Reader struct {
	src  Source
	pool *InflatePool
}

// NewReader creates a Reader over src. A nil pool allocates a zlib reader per stream.
func NewReader(src Source, pool *InflatePool) *Reader {
	return &Reader{src: src, pool: pool}
}

// Open returns the decoded content of s.
// The stream fails with ErrSizeMismatch if the decoded length differs from s.Size.
func (r *Reader) Open(s Section) (io.ReadCloser, error) {
	if err := ValidateEncoding(s); err != nil {
		return nil, err
	}
	if s.Length == 0 && s.Size == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	off, length, err := sizing.Range(s.Offset, s.Length, r.src.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	raw, err := r.src.ReadRange(off, length)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	switch s.Encoding {
	case xartype.EncodingGzip:
		zr, release, err := r.pool.Get(raw)
		if err != nil {
			_ = raw.Close() //nolint:errcheck // best-effort cleanup
			return nil, fmt.Errorf("%w: %s: %v", xartype.ErrDecompression, s.Path, err)
		}
		return &decodedStream{
			counter: CountingReader{R: zr},
			path:    s.Path,
			want:    s.Size,
			inflate: true,
			closeFn: func() error {
				release()
				return raw.Close()
			},
		}, nil
	default:
		return &decodedStream{
			counter: CountingReader{R: raw},
			path:    s.Path,
			want:    s.Size,
			closeFn: raw.Close,
		}, nil
	}
}

// ReadAll returns the decoded content of s as a slice.
func (r *Reader) ReadAll(s Section) ([]byte, error) {
	rc, err := r.Open(s)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	buf := bytes.NewBuffer(make([]byte, 0, capHint(s.Size)))
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidateEncoding rejects encodings that cannot be decoded.
func ValidateEncoding(s Section) error {
	switch s.Encoding {
	case xartype.EncodingNone, xartype.EncodingGzip:
		return nil
	default:
		return fmt.Errorf("%w: %s (%s)", xartype.ErrUnsupportedEncoding, s.Path, s.Encoding)
	}
}

func capHint(size uint64) int {
	const maxHint = 1 << 20
	if size > maxHint {
		return maxHint
	}
	return int(size)
}

// decodedStream enforces the declared decoded size and maps decoder failures.
type decodedStream struct {
	counter CountingReader
	path    string
	want    uint64
	inflate bool
	closeFn func() error
	closed  bool
}

func (d *decodedStream) Read(p []byte) (int, error) {
	n, err := d.counter.Read(p)
	if d.counter.Count() > d.want {
		return n, fmt.Errorf("%w: %s: decoded more than %d bytes", xartype.ErrSizeMismatch, d.path, d.want)
	}
	switch {
	case err == io.EOF:
		if d.counter.Count() != d.want {
			return n, fmt.Errorf("%w: %s: decoded %d of %d bytes", xartype.ErrSizeMismatch, d.path, d.counter.Count(), d.want)
		}
		return n, io.EOF
	case err != nil && d.inflate && !errors.Is(err, xartype.ErrSizeOverflow):
		return n, fmt.Errorf("%w: %s: %w", xartype.ErrDecompression, d.path, err)
	}
	return n, err
}

func (d *decodedStream) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.closeFn()
}
