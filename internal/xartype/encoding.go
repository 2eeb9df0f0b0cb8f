package xartype

import (
	"fmt"
	"strings"
)

// Encoding identifies how a payload is stored in the heap.
type Encoding uint8

const (
	// EncodingNone stores bytes verbatim.
	EncodingNone Encoding = iota
	// EncodingGzip stores a zlib stream (the format calls it gzip).
	EncodingGzip
	// EncodingBzip2 is declared by the format but cannot be read or written.
	EncodingBzip2
	// EncodingUnknown marks a MIME token this package does not recognize.
	EncodingUnknown
)

// MIME types used in the encoding style attribute.
const (
	MIMEOctetStream = "application/octet-stream"
	MIMEGzip        = "application/x-gzip"
	MIMEBzip2       = "application/x-bzip"
)

// String returns a short name for the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingNone:
		return "none"
	case EncodingGzip:
		return "gzip"
	case EncodingBzip2:
		return "bzip2"
	default:
		return "unknown"
	}
}

// MIME returns the wire token for the encoding.
func (e Encoding) MIME() (string, error) {
	switch e {
	case EncodingNone:
		return MIMEOctetStream, nil
	case EncodingGzip:
		return MIMEGzip, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEncoding, e)
	}
}

// ParseEncoding maps a MIME token to an encoding, ignoring case.
// Unrecognized tokens yield EncodingUnknown.
func ParseEncoding(mime string) Encoding {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "", MIMEOctetStream:
		return EncodingNone
	case MIMEGzip:
		return EncodingGzip
	case MIMEBzip2, "application/x-bzip2":
		return EncodingBzip2
	default:
		return EncodingUnknown
	}
}
