package xar

import (
	"bytes"
	_ "crypto/sha256" // registers sha256 for digest.FromBytes
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/tidwall/btree"

	"github.com/meigma/xar/internal/header"
	"github.com/meigma/xar/internal/payload"
	"github.com/meigma/xar/internal/sizing"
	"github.com/meigma/xar/internal/toc"
)

// Archive provides read access to a xar archive.
//
// The header and TOC are loaded once by Open; afterwards the archive is
// immutable and safe for concurrent use.
type Archive struct {
	src    RangeSource
	reader *payload.Reader
	logger *slog.Logger

	verifyTOC        bool
	strictTimestamps bool
	maxTOCSize       int64

	header        Header
	heapOffset    uint64
	toc           *toc.TOC
	tocCompressed []byte

	entries []*Entry
	roots   []*Entry
	index   *btree.BTreeG[*Entry]
}

// Open reads the header and TOC from src and builds the entry tree.
//
// Any failure here (bad magic, truncated data, malformed TOC) is returned
// and no Archive is produced.
func Open(src RangeSource, opts ...Option) (*Archive, error) {
	a := &Archive{
		src:        src,
		maxTOCSize: DefaultMaxTOCSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxTOCSize == 0 {
		a.maxTOCSize = DefaultMaxTOCSize
	}
	a.reader = payload.NewReader(src, payload.NewInflatePool())

	if err := a.load(); err != nil {
		return nil, err
	}
	return a, nil
}

// load reads the header, then the compressed TOC, then builds entries.
func (a *Archive) load() error {
	if a.src.Size() < HeaderSize {
		return fmt.Errorf("%w: source holds %d bytes", ErrTruncated, a.src.Size())
	}
	h, err := header.Read(a.src)
	if err != nil {
		return err
	}
	heapOffset, ok := h.HeapOffset()
	if !ok {
		return fmt.Errorf("%w: toc length %d", ErrSizeOverflow, h.TOCLengthCompressed)
	}
	if a.maxTOCSize > 0 && h.TOCLengthUncompressed > uint64(a.maxTOCSize) {
		return fmt.Errorf("%w: toc of %d bytes exceeds limit %d", ErrSizeOverflow, h.TOCLengthUncompressed, a.maxTOCSize)
	}
	a.header = h
	a.heapOffset = heapOffset

	off, length, err := sizing.Range(uint64(h.Size), h.TOCLengthCompressed, a.src.Size())
	if err != nil {
		return fmt.Errorf("%w: read toc: %w", ErrTruncated, err)
	}
	rc, err := a.src.ReadRange(off, length)
	if err != nil {
		return fmt.Errorf("read toc: %w", err)
	}
	compressed, err := sizing.ReadExact(rc, h.TOCLengthCompressed)
	_ = rc.Close() //nolint:errcheck // read-only range
	if err != nil {
		return fmt.Errorf("%w: read toc: %w", ErrTruncated, err)
	}
	a.tocCompressed = compressed

	if a.verifyTOC {
		if err := a.VerifyTOC(); err != nil {
			return err
		}
	}

	raw, err := toc.Decompress(compressed, h.TOCLengthUncompressed)
	if err != nil {
		return err
	}
	var parseOpts []toc.ParseOption
	if a.strictTimestamps {
		parseOpts = append(parseOpts, toc.WithStrictTimestamps())
	}
	t, err := toc.Parse(raw, parseOpts...)
	if err != nil {
		return err
	}
	a.toc = t

	if err := a.buildEntries(t.Files); err != nil {
		return err
	}
	a.log().Debug("opened archive",
		"toc_compressed", h.TOCLengthCompressed,
		"toc_uncompressed", h.TOCLengthUncompressed,
		"checksum", h.ChecksumAlgorithm,
		"entries", len(a.entries))
	return nil
}

// Header returns the decoded archive header.
func (a *Archive) Header() Header {
	return a.header
}

// HeapOffset returns the absolute offset of the first byte after the TOC.
// Payload offsets in the TOC are relative to it.
func (a *Archive) HeapOffset() uint64 {
	return a.heapOffset
}

// CreationTime returns the creation time recorded in the TOC.
func (a *Archive) CreationTime() (time.Time, bool) {
	if a.toc.CreationTime == nil {
		return time.Time{}, false
	}
	return a.toc.CreationTime.Time, true
}

// Entries returns every entry in depth-first, declaration order.
// The returned slice must not be modified.
func (a *Archive) Entries() []*Entry {
	return a.entries
}

// Roots returns the top-level entries.
func (a *Archive) Roots() []*Entry {
	return a.roots
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Entry returns the entry at path. Leading, trailing and repeated slashes are ignored.
func (a *Archive) Entry(path string) (*Entry, bool) {
	return a.index.Get(&Entry{path: NormalizePath(path)})
}

// HasEntry reports whether an entry exists at path.
func (a *Archive) HasEntry(path string) bool {
	_, ok := a.Entry(path)
	return ok
}

// EntriesWithPrefix iterates entries whose path starts with prefix, in lexical path order.
func (a *Archive) EntriesWithPrefix(prefix string) iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		a.index.Ascend(&Entry{path: prefix}, func(e *Entry) bool {
			if !strings.HasPrefix(e.path, prefix) {
				return false
			}
			return yield(e)
		})
	}
}

// RawTOC returns the uncompressed TOC document.
func (a *Archive) RawTOC() ([]byte, error) {
	return toc.Decompress(a.tocCompressed, a.header.TOCLengthUncompressed)
}

// TOCDigest returns the sha256 digest of the compressed TOC.
// It identifies the archive's table of contents independent of its location.
func (a *Archive) TOCDigest() digest.Digest {
	return digest.FromBytes(a.tocCompressed)
}

// VerifyTOC checks the checksum stored in the heap against the compressed TOC.
// Archives written with ChecksumNone always verify.
func (a *Archive) VerifyTOC() error {
	alg := a.header.ChecksumAlgorithm
	h := alg.New()
	if h == nil {
		return nil
	}

	var heapOff uint64
	size := uint64(alg.Size()) //nolint:gosec // digest sizes are small
	if a.toc != nil && a.toc.Checksum != nil {
		heapOff = a.toc.Checksum.Offset
		if a.toc.Checksum.Size != 0 {
			size = a.toc.Checksum.Size
		}
	}
	start, err := sizing.Add(a.heapOffset, heapOff)
	if err != nil {
		return err
	}
	off, length, err := sizing.Range(start, size, a.src.Size())
	if err != nil {
		return fmt.Errorf("read toc checksum: %w", err)
	}
	rc, err := a.src.ReadRange(off, length)
	if err != nil {
		return fmt.Errorf("read toc checksum: %w", err)
	}
	defer rc.Close()
	stored, err := sizing.ReadExact(rc, size)
	if err != nil {
		return fmt.Errorf("read toc checksum: %w", err)
	}

	_, _ = h.Write(a.tocCompressed) //nolint:errcheck // hash.Hash never returns an error
	if !bytes.Equal(h.Sum(nil), stored) {
		return fmt.Errorf("%w: toc %s checksum", ErrIntegrity, alg)
	}
	return nil
}

// log returns the configured logger or a no-op logger if none is set.
func (a *Archive) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.New(slog.DiscardHandler)
}
