package xar

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/meigma/xar/internal/payload"
)

// Entry is a file or directory in an Archive.
//
// Entries are created by Open and are read-only. Content is fetched from the
// archive's RangeSource only when Open, Bytes or Extract is called.
type Entry struct {
	archive *Archive
	parent  *Entry
	id      uint64
	name    string
	path    string
	dir     bool

	hasData          bool
	section          payload.Section
	hasChecksum      bool
	checksumAlg      ChecksumAlgorithm
	checksum         string
	archivedAlg      ChecksumAlgorithm
	archivedChecksum string

	mode    fs.FileMode
	uid     uint32
	gid     uint32
	user    string
	group   string
	modTime time.Time
	created time.Time

	children []*Entry
	attrs    []ExtendedAttribute
}

// ID returns the TOC id of the entry.
func (e *Entry) ID() uint64 { return e.id }

// Name returns the last element of the entry's path.
func (e *Entry) Name() string { return e.name }

// Path returns the full slash-separated path from the archive root.
func (e *Entry) Path() string { return e.path }

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool { return e.dir }

// Parent returns the containing directory, or nil for a top-level entry.
func (e *Entry) Parent() *Entry { return e.parent }

// Children returns the entries directly inside a directory, in TOC order.
func (e *Entry) Children() []*Entry { return e.children }

// HasData reports whether the TOC declares a payload for the entry.
func (e *Entry) HasData() bool { return e.hasData }

// Offset returns the absolute offset of the payload in the archive.
func (e *Entry) Offset() uint64 { return e.section.Offset }

// Length returns the number of stored (possibly compressed) payload bytes.
func (e *Entry) Length() uint64 { return e.section.Length }

// Size returns the decoded content size.
func (e *Entry) Size() uint64 { return e.section.Size }

// Encoding returns how the payload is stored.
func (e *Entry) Encoding() Encoding { return e.section.Encoding }

// Checksum returns the algorithm and hex digest of the decoded content.
// ok is false when the TOC records no extracted checksum.
func (e *Entry) Checksum() (alg ChecksumAlgorithm, sum string, ok bool) {
	return e.checksumAlg, e.checksum, e.hasChecksum
}

// ArchivedChecksum returns the algorithm and hex digest of the stored bytes.
func (e *Entry) ArchivedChecksum() (ChecksumAlgorithm, string) {
	return e.archivedAlg, e.archivedChecksum
}

// Mode returns the permission bits, with fs.ModeDir set for directories.
func (e *Entry) Mode() fs.FileMode { return e.mode }

// UID returns the owner's numeric user id.
func (e *Entry) UID() uint32 { return e.uid }

// GID returns the owner's numeric group id.
func (e *Entry) GID() uint32 { return e.gid }

// User returns the owner's user name.
func (e *Entry) User() string { return e.user }

// Group returns the owner's group name.
func (e *Entry) Group() string { return e.group }

// ModTime returns the modification time, or the zero time if none is recorded.
func (e *Entry) ModTime() time.Time { return e.modTime }

// FinderCreateTime returns the Finder creation time, or the zero time if none
// is recorded.
func (e *Entry) FinderCreateTime() time.Time { return e.created }

// ExtendedAttributes returns the entry's extended attributes in TOC order.
func (e *Entry) ExtendedAttributes() []ExtendedAttribute { return e.attrs }

// Open returns a stream of the decoded content.
//
// Directories fail with ErrIsDirectory. An entry without a data block yields
// an empty stream. Bzip2 and unrecognized encodings fail with
// ErrUnsupportedEncoding before any bytes are read.
func (e *Entry) Open() (io.ReadCloser, error) {
	if e.dir {
		return nil, &fs.PathError{Op: "open", Path: e.path, Err: ErrIsDirectory}
	}
	if !e.hasData {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return e.archive.reader.Open(e.section)
}

// Bytes returns the full decoded content.
func (e *Entry) Bytes() ([]byte, error) {
	if e.dir {
		return nil, &fs.PathError{Op: "read", Path: e.path, Err: ErrIsDirectory}
	}
	if !e.hasData {
		return []byte{}, nil
	}
	return e.archive.reader.ReadAll(e.section)
}

// String returns the entry path.
func (e *Entry) String() string { return e.path }

// ExtendedAttribute is a named payload attached to an entry.
type ExtendedAttribute struct {
	Name    string
	entry   *Entry
	section payload.Section
}

// Size returns the decoded attribute size.
func (x ExtendedAttribute) Size() uint64 { return x.section.Size }

// Bytes returns the decoded attribute value.
func (x ExtendedAttribute) Bytes() ([]byte, error) {
	if x.entry == nil {
		return nil, fmt.Errorf("extended attribute %q: %w", x.Name, ErrNotFound)
	}
	return x.entry.archive.reader.ReadAll(x.section)
}
