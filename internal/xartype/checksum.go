package xartype

import (
	"crypto/md5"  //nolint:gosec // md5 is part of the on-disk format
	"crypto/sha1" //nolint:gosec // sha1 is part of the on-disk format
	"fmt"
	"hash"
	"strings"
)

// ChecksumAlgorithm identifies the hash used for the TOC and payload checksums.
// The numeric values match the header's checksum algorithm field.
type ChecksumAlgorithm uint32

const (
	ChecksumNone ChecksumAlgorithm = iota
	ChecksumSHA1
	ChecksumMD5
)

// String returns the lower-case wire name of the algorithm.
func (a ChecksumAlgorithm) String() string {
	switch a {
	case ChecksumNone:
		return "none"
	case ChecksumSHA1:
		return "sha1"
	case ChecksumMD5:
		return "md5"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(a))
	}
}

// Valid reports whether a is a known algorithm.
func (a ChecksumAlgorithm) Valid() bool {
	return a <= ChecksumMD5
}

// Size returns the digest length in bytes (0 for none).
func (a ChecksumAlgorithm) Size() int {
	switch a {
	case ChecksumSHA1:
		return sha1.Size
	case ChecksumMD5:
		return md5.Size
	default:
		return 0
	}
}

// New returns a fresh hash for the algorithm, or nil for none.
func (a ChecksumAlgorithm) New() hash.Hash {
	switch a {
	case ChecksumSHA1:
		return sha1.New() //nolint:gosec // format-mandated
	case ChecksumMD5:
		return md5.New() //nolint:gosec // format-mandated
	default:
		return nil
	}
}

// ParseChecksumAlgorithm maps a style name to an algorithm, ignoring case.
func ParseChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return ChecksumNone, nil
	case "sha1":
		return ChecksumSHA1, nil
	case "md5":
		return ChecksumMD5, nil
	default:
		return ChecksumNone, fmt.Errorf("%w: unknown checksum style %q", ErrInvalidChecksumAlgorithm, s)
	}
}

// MarshalText implements encoding.TextMarshaler for the TOC style attribute.
func (a ChecksumAlgorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChecksumAlgorithm, uint32(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOC style attribute.
func (a *ChecksumAlgorithm) UnmarshalText(b []byte) error {
	v, err := ParseChecksumAlgorithm(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
