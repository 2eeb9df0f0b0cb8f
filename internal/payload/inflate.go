package payload

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// InflatePool manages reusable zlib readers to reduce allocation overhead.
type InflatePool struct {
	pool sync.Pool
}

// NewInflatePool creates an empty pool.
func NewInflatePool() *InflatePool {
	return &InflatePool{}
}

// Get returns a zlib reader positioned at the start of r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *InflatePool) Get(r io.Reader) (io.ReadCloser, func(), error) {
	if p == nil {
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil //nolint:errcheck // close of a drained reader
	}

	if value := p.pool.Get(); value != nil {
		if zr, ok := value.(io.ReadCloser); ok {
			if resetter, ok := zr.(zlib.Resetter); ok {
				if err := resetter.Reset(r, nil); err != nil {
					// The stream header is bad; the reader itself is still reusable.
					p.pool.Put(zr)
					return nil, nil, err
				}
				return zr, func() { p.pool.Put(zr) }, nil
			}
		}
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return zr, func() { p.pool.Put(zr) }, nil
}
