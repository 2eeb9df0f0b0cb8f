// Package header encodes and decodes the fixed-size xar archive header.
package header

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/meigma/xar/internal/xartype"
)

const (
	// Magic is "xar!" read as a big-endian uint32.
	Magic uint32 = 0x78617221

	// Size is the length of the encoded header in bytes.
	Size = 28

	// Version is the only header version written.
	Version uint16 = 1
)

// Header is the decoded archive header.
type Header struct {
	Magic                 uint32
	Size                  uint16
	Version               uint16
	TOCLengthCompressed   uint64
	TOCLengthUncompressed uint64
	ChecksumAlgorithm     xartype.ChecksumAlgorithm
}

// New returns a header describing a TOC of the given lengths.
func New(tocCompressed, tocUncompressed uint64, alg xartype.ChecksumAlgorithm) Header {
	return Header{
		Magic:                 Magic,
		Size:                  Size,
		Version:               Version,
		TOCLengthCompressed:   tocCompressed,
		TOCLengthUncompressed: tocUncompressed,
		ChecksumAlgorithm:     alg,
	}
}

// Decode parses a header from the first Size bytes of b.
// The magic is checked before any other field.
func Decode(b []byte) (Header, error) {
	if len(b) < Size {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", xartype.ErrTruncated, Size, len(b))
	}
	h := Header{
		Magic:                 binary.BigEndian.Uint32(b[0:4]),
		Size:                  binary.BigEndian.Uint16(b[4:6]),
		Version:               binary.BigEndian.Uint16(b[6:8]),
		TOCLengthCompressed:   binary.BigEndian.Uint64(b[8:16]),
		TOCLengthUncompressed: binary.BigEndian.Uint64(b[16:24]),
		ChecksumAlgorithm:     xartype.ChecksumAlgorithm(binary.BigEndian.Uint32(b[24:28])),
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w: 0x%08x", xartype.ErrInvalidMagic, h.Magic)
	}
	if h.Size < Size {
		return Header{}, fmt.Errorf("%w: header size %d", xartype.ErrMalformedHeader, h.Size)
	}
	if !h.ChecksumAlgorithm.Valid() {
		return Header{}, fmt.Errorf("%w: checksum algorithm %d", xartype.ErrMalformedHeader, uint32(h.ChecksumAlgorithm))
	}
	return h, nil
}

// Encode returns the big-endian wire form of h.
func (h Header) Encode() []byte {
	b := make([]byte, Size)
	binary.BigEndian.PutUint32(b[0:4], h.Magic)
	binary.BigEndian.PutUint16(b[4:6], h.Size)
	binary.BigEndian.PutUint16(b[6:8], h.Version)
	binary.BigEndian.PutUint64(b[8:16], h.TOCLengthCompressed)
	binary.BigEndian.PutUint64(b[16:24], h.TOCLengthUncompressed)
	binary.BigEndian.PutUint32(b[24:28], uint32(h.ChecksumAlgorithm))
	return b
}

// RangeReader is the subset of a range source needed to load a header.
type RangeReader interface {
	ReadRange(off, length int64) (io.ReadCloser, error)
}

// Read fetches and decodes the header at offset 0 of src.
func Read(src RangeReader) (Header, error) {
	rc, err := src.ReadRange(0, Size)
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	defer rc.Close()

	buf := make([]byte, Size)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return Header{}, fmt.Errorf("%w: read header: %v", xartype.ErrTruncated, err)
	}
	return Decode(buf)
}

// HeapOffset returns the absolute offset of heap position 0.
func (h Header) HeapOffset() (uint64, bool) {
	off := uint64(h.Size) + h.TOCLengthCompressed
	if off < h.TOCLengthCompressed {
		return 0, false
	}
	return off, true
}
