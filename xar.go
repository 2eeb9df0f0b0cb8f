package xar

import (
	"io"

	"github.com/meigma/xar/internal/header"
	"github.com/meigma/xar/internal/xartype"
)

// Re-export types from internal packages for the public API.
type (
	// Header is the decoded fixed-size archive header.
	Header = header.Header

	// ChecksumAlgorithm identifies the hash used for TOC and payload checksums.
	ChecksumAlgorithm = xartype.ChecksumAlgorithm

	// Encoding identifies how a payload is stored in the heap.
	Encoding = xartype.Encoding
)

// Re-export checksum algorithms.
const (
	ChecksumNone = xartype.ChecksumNone
	ChecksumSHA1 = xartype.ChecksumSHA1
	ChecksumMD5  = xartype.ChecksumMD5
)

// Re-export payload encodings.
const (
	EncodingNone    = xartype.EncodingNone
	EncodingGzip    = xartype.EncodingGzip
	EncodingBzip2   = xartype.EncodingBzip2
	EncodingUnknown = xartype.EncodingUnknown
)

// HeaderSize is the length of an encoded header.
const HeaderSize = header.Size

// Sentinel errors re-exported from internal/xartype.
var (
	// ErrInvalidMagic is returned when the source is not a xar archive.
	ErrInvalidMagic = xartype.ErrInvalidMagic

	// ErrMalformedHeader is returned when header fields are inconsistent.
	ErrMalformedHeader = xartype.ErrMalformedHeader

	// ErrTruncated is returned when the source is too short for the header or TOC.
	ErrTruncated = xartype.ErrTruncated

	// ErrShortRead is returned when a range source yields fewer bytes than requested.
	ErrShortRead = xartype.ErrShortRead

	// ErrRemote is returned when a remote source answers with an unusable response.
	ErrRemote = xartype.ErrRemote

	// ErrTOCParse is returned when the table of contents cannot be decoded.
	ErrTOCParse = xartype.ErrTOCParse

	// ErrUnsupportedEncoding is returned for bzip2 and unrecognized payload encodings.
	ErrUnsupportedEncoding = xartype.ErrUnsupportedEncoding

	// ErrDecompression is returned when a gzip payload is corrupt.
	ErrDecompression = xartype.ErrDecompression

	// ErrIntegrity is returned when a checksum does not match.
	ErrIntegrity = xartype.ErrIntegrity

	// ErrIsDirectory is returned when content is requested from a directory.
	ErrIsDirectory = xartype.ErrIsDirectory

	// ErrNotFound is returned when an archive has no entry at a path.
	ErrNotFound = xartype.ErrNotFound

	// ErrUnknownParent is returned when a Writer is given a foreign directory handle.
	ErrUnknownParent = xartype.ErrUnknownParent

	// ErrSizeOverflow is returned when sizes or offsets exceed supported limits.
	ErrSizeOverflow = xartype.ErrSizeOverflow

	// ErrSizeMismatch is returned when a payload does not have its declared size.
	ErrSizeMismatch = xartype.ErrSizeMismatch

	// ErrInvalidPath is returned for names that cannot form a safe relative path.
	ErrInvalidPath = xartype.ErrInvalidPath

	// ErrInvalidChecksumAlgorithm is returned for an unknown checksum algorithm
	// name or value.
	ErrInvalidChecksumAlgorithm = xartype.ErrInvalidChecksumAlgorithm

	// ErrTooManyFiles is returned when Pack exceeds its entry limit.
	ErrTooManyFiles = xartype.ErrTooManyFiles
)

// RangeSource provides random access to the bytes of an archive.
//
// ReadRange must yield exactly length bytes starting at off, or fail with an
// error wrapping ErrShortRead. Size reports the total length of the resource.
// Implementations exist for local files (OpenFile), HTTP range requests
// (package xar/http) and S3 objects (package xar/s3).
type RangeSource interface {
	ReadRange(off, length int64) (io.ReadCloser, error)
	Size() int64
}

// ParseChecksumAlgorithm maps a style name ("none", "sha1", "md5") to an
// algorithm, ignoring case.
func ParseChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	return xartype.ParseChecksumAlgorithm(s)
}
