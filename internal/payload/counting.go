package payload

import (
	"io"

	"github.com/meigma/xar/internal/sizing"
)

// tally is a byte count that reports xartype.ErrSizeOverflow instead of wrapping.
type tally uint64

func (t *tally) add(n int) error {
	if n <= 0 {
		return nil
	}
	sum, err := sizing.Add(uint64(*t), uint64(n))
	if err != nil {
		return err
	}
	*t = tally(sum)
	return nil
}

// Count returns the number of bytes seen so far.
func (t *tally) Count() uint64 { return uint64(*t) }

// CountingReader counts the bytes read through it; the writer uses it to
// learn the decoded size of a payload while hashing it.
type CountingReader struct {
	tally
	R io.Reader
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	if terr := c.add(n); terr != nil {
		return n, terr
	}
	return n, err
}

// CountingWriter counts the bytes written through it, giving the stored
// length of a payload as it reaches the heap.
type CountingWriter struct {
	tally
	W io.Writer
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	if terr := c.add(n); terr != nil {
		return n, terr
	}
	return n, err
}
