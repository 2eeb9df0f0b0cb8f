// Package sizing provides overflow-checked offset arithmetic for heap ranges.
package sizing

import (
	"fmt"
	"io"
	"math"

	"github.com/meigma/xar/internal/xartype"
)

// ToInt64 converts a uint64 to int64, failing with ErrSizeOverflow if it doesn't fit.
func ToInt64(v uint64) (int64, error) {
	if v > uint64(math.MaxInt64) {
		return 0, fmt.Errorf("%w: %d", xartype.ErrSizeOverflow, v)
	}
	return int64(v), nil
}

// Add adds two uint64 values, failing with ErrSizeOverflow on wraparound.
func Add(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", xartype.ErrSizeOverflow, a, b)
	}
	return sum, nil
}

// Range converts an unsigned [off, off+length) range into int64 arguments
// for a range source, checking the end against total when total >= 0.
func Range(off, length uint64, total int64) (int64, int64, error) {
	end, err := Add(off, length)
	if err != nil {
		return 0, 0, err
	}
	if _, err := ToInt64(end); err != nil {
		return 0, 0, err
	}
	if total >= 0 && end > uint64(total) { //nolint:gosec // total checked non-negative
		return 0, 0, fmt.Errorf("%w: range %d+%d beyond source size %d", xartype.ErrShortRead, off, length, total)
	}
	return int64(off), int64(length), nil //nolint:gosec // end fits in int64, so both parts do
}

// ReadExact reads exactly n bytes from r into a new slice.
// A reader that ends early yields ErrShortRead.
func ReadExact(r io.Reader, n uint64) ([]byte, error) {
	if n > uint64(math.MaxInt-1) {
		return nil, fmt.Errorf("%w: %d", xartype.ErrSizeOverflow, n)
	}
	buf := make([]byte, int(n))
	got, err := io.ReadFull(r, buf)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("%w: %d of %d bytes", xartype.ErrShortRead, got, n)
		}
		return nil, err
	}
	return buf, nil
}

// ExactReader returns a reader that yields exactly n bytes from r.
// If r ends first, the final Read fails with ErrShortRead instead of io.EOF.
func ExactReader(r io.Reader, n int64) io.Reader {
	return &exactReader{r: r, want: n, left: n}
}

type exactReader struct {
	r    io.Reader
	want int64
	left int64
}

func (e *exactReader) Read(p []byte) (int, error) {
	if e.left <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > e.left {
		p = p[:e.left]
	}
	n, err := e.r.Read(p)
	e.left -= int64(n)
	if err == io.EOF {
		if e.left > 0 {
			return n, fmt.Errorf("%w: %d of %d bytes", xartype.ErrShortRead, e.want-e.left, e.want)
		}
		return n, io.EOF
	}
	return n, err
}
