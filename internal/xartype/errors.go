package xartype

import "errors"

// Sentinel errors shared by the archive packages.
var (
	// ErrInvalidMagic is returned when the header does not start with the xar magic.
	ErrInvalidMagic = errors.New("xar: invalid magic")

	// ErrMalformedHeader is returned when header fields are inconsistent.
	ErrMalformedHeader = errors.New("xar: malformed header")

	// ErrTruncated is returned when fewer bytes than a fixed structure requires are available.
	ErrTruncated = errors.New("xar: truncated input")

	// ErrShortRead is returned when a range source yields fewer bytes than requested.
	ErrShortRead = errors.New("xar: short read")

	// ErrRemote is returned when a remote source answers with an unusable response.
	ErrRemote = errors.New("xar: remote request failed")

	// ErrTOCParse is returned when the table of contents cannot be decoded.
	ErrTOCParse = errors.New("xar: invalid table of contents")

	// ErrUnsupportedEncoding is returned for payload encodings that cannot be read or written.
	ErrUnsupportedEncoding = errors.New("xar: unsupported encoding")

	// ErrDecompression is returned when a payload fails to decompress to its declared size.
	ErrDecompression = errors.New("xar: decompression failed")

	// ErrIntegrity is returned when a computed checksum does not match the recorded one.
	ErrIntegrity = errors.New("xar: checksum mismatch")

	// ErrIsDirectory is returned when content is requested from a directory entry.
	ErrIsDirectory = errors.New("xar: is a directory")

	// ErrNotFound is returned when no entry exists for a path.
	ErrNotFound = errors.New("xar: entry not found")

	// ErrUnknownParent is returned when a writer is given a directory it did not create.
	ErrUnknownParent = errors.New("xar: unknown parent directory")

	// ErrSizeOverflow is returned when sizes or offsets exceed supported limits.
	ErrSizeOverflow = errors.New("xar: size overflow")

	// ErrSizeMismatch is returned when a payload source produces a different number of bytes than declared.
	ErrSizeMismatch = errors.New("xar: size mismatch")

	// ErrInvalidPath is returned for entry paths that are not valid slash-separated relative paths.
	ErrInvalidPath = errors.New("xar: invalid path")

	// ErrInvalidChecksumAlgorithm is returned for checksum algorithms outside none, sha1 and md5.
	ErrInvalidChecksumAlgorithm = errors.New("xar: invalid checksum algorithm")

	// ErrTooManyFiles is returned when packing exceeds its entry limit.
	ErrTooManyFiles = errors.New("xar: too many files")
)
