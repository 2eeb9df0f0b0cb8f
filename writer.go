package xar

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"github.com/meigma/xar/internal/header"
	"github.com/meigma/xar/internal/payload"
	"github.com/meigma/xar/internal/toc"
	"github.com/meigma/xar/internal/xartype"
)

// Source supplies one file's payload to a Writer.
//
// Length is the number of bytes Open yields (the encoded size) and Size the
// decoded size. The checksums are hex digests computed with
// ChecksumAlgorithm over the decoded and the encoded bytes respectively.
// If a Source also implements io.Closer, the Writer closes it after its
// payload has been written.
type Source interface {
	Name() string
	Size() uint64
	Length() uint64
	ModTime() time.Time
	ChecksumAlgorithm() ChecksumAlgorithm
	ExtractedChecksum() string
	ArchivedChecksum() string
	Encoding() Encoding
	Open() (io.ReadCloser, error)
}

// attributeSource is implemented by sources carrying file ownership and mode.
type attributeSource interface {
	Mode() fs.FileMode
	Owner() (uid, gid uint32)
}

// Directory is a handle to a directory added to a Writer.
type Directory struct {
	node *toc.File
	w    *Writer
}

// Writer builds a xar archive.
//
// Directories and sources are registered first; Write then emits the header,
// the compressed TOC, the TOC checksum and every payload in the order the
// sources were added. A Writer is not safe for concurrent use.
type Writer struct {
	cfg     writerConfig
	toc     toc.TOC
	nextID  uint64
	cursor  uint64
	sources []Source
	written bool
}

// NewWriter creates an empty Writer.
func NewWriter(opts ...WriterOption) *Writer {
	cfg := defaultWriterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Writer{
		cfg:    cfg,
		cursor: uint64(cfg.checksum.Size()), //nolint:gosec // digest sizes are small
	}
}

// AddDirectory adds a directory under parent, or at the top level when parent is nil.
func (w *Writer) AddDirectory(name string, parent *Directory) (*Directory, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := w.checkParent(parent); err != nil {
		return nil, err
	}
	node := &toc.File{
		ID:   w.allocID(),
		Name: name,
		Type: xartype.TypeDirectory,
	}
	w.attach(node, parent)
	w.log().Debug("added directory", "name", name, "id", node.ID)
	return &Directory{node: node, w: w}, nil
}

// AddSource adds a file under parent, or at the top level when parent is nil.
// Its payload is placed after every previously added payload.
func (w *Writer) AddSource(src Source, parent *Directory) error {
	if err := validateName(src.Name()); err != nil {
		return err
	}
	if err := w.checkParent(parent); err != nil {
		return err
	}
	mime, err := src.Encoding().MIME()
	if err != nil {
		return fmt.Errorf("add %s: %w", src.Name(), err)
	}
	alg := src.ChecksumAlgorithm()
	if !alg.Valid() {
		return fmt.Errorf("add %s: %w: checksum algorithm %d", src.Name(), ErrInvalidChecksumAlgorithm, uint32(alg))
	}
	next := w.cursor + src.Length()
	if next < w.cursor {
		return fmt.Errorf("add %s: %w", src.Name(), ErrSizeOverflow)
	}

	node := &toc.File{
		ID:    w.allocID(),
		Name:  src.Name(),
		Type:  xartype.TypeFile,
		MTime: toc.NewTimestamp(src.ModTime()),
		Data: &toc.Data{
			Length:             src.Length(),
			Offset:             w.cursor,
			Size:               src.Size(),
			Encoding:           &toc.EncodingStyle{Style: mime},
			ArchivedChecksum:   &toc.FileChecksum{Style: alg, Value: src.ArchivedChecksum()},
			ExtractedChecksum:  &toc.FileChecksum{Style: alg, Value: src.ExtractedChecksum()},
			UnarchivedChecksum: &toc.FileChecksum{Style: alg, Value: src.ExtractedChecksum()},
		},
	}
	if as, ok := src.(attributeSource); ok {
		uid, gid := as.Owner()
		node.Mode = fmt.Sprintf("%04o", as.Mode().Perm())
		node.UID = strconv.FormatUint(uint64(uid), 10)
		node.GID = strconv.FormatUint(uint64(gid), 10)
	}
	w.attach(node, parent)
	w.sources = append(w.sources, src)
	w.cursor = next
	w.log().Debug("added source", "name", src.Name(), "id", node.ID, "offset", node.Data.Offset, "length", src.Length())
	return nil
}

// Write emits the archive to out. A Writer can be written only once.
func (w *Writer) Write(out io.Writer) error {
	if w.written {
		return errors.New("xar: writer already written")
	}
	w.written = true
	defer w.closeSources()

	alg := w.cfg.checksum
	created := w.cfg.creationTime
	if created.IsZero() {
		created = time.Now()
	}
	w.toc.Checksum = &toc.Checksum{Style: alg, Size: uint64(alg.Size()), Offset: 0} //nolint:gosec // digest sizes are small
	w.toc.CreationTime = toc.NewTimestamp(created)

	doc, err := toc.Marshal(&w.toc)
	if err != nil {
		return err
	}
	compressed, err := toc.Compress(doc, w.cfg.tocLevel)
	if err != nil {
		return err
	}

	h := header.New(uint64(len(compressed)), uint64(len(doc)), alg)
	if _, err := out.Write(h.Encode()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := out.Write(compressed); err != nil {
		return fmt.Errorf("write toc: %w", err)
	}
	if sum := alg.New(); sum != nil {
		_, _ = sum.Write(compressed) //nolint:errcheck // hash.Hash never returns an error
		if _, err := out.Write(sum.Sum(nil)); err != nil {
			return fmt.Errorf("write toc checksum: %w", err)
		}
	}
	w.log().Info("writing archive", "sources", len(w.sources), "toc_compressed", len(compressed), "toc_uncompressed", len(doc))

	for _, src := range w.sources {
		if err := w.copySource(out, src); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) copySource(out io.Writer, src Source) error {
	rc, err := src.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", src.Name(), err)
	}
	defer rc.Close()

	cw := &payload.CountingWriter{W: out}
	if _, err := io.Copy(cw, rc); err != nil {
		return fmt.Errorf("write %s: %w", src.Name(), err)
	}
	if cw.Count() != src.Length() {
		return fmt.Errorf("write %s: %w: wrote %d bytes, declared %d", src.Name(), ErrSizeMismatch, cw.Count(), src.Length())
	}
	return nil
}

func (w *Writer) closeSources() {
	for _, src := range w.sources {
		if c, ok := src.(io.Closer); ok {
			if err := c.Close(); err != nil {
				w.log().Warn("close source", "name", src.Name(), "error", err)
			}
		}
	}
}

func (w *Writer) checkParent(parent *Directory) error {
	if parent != nil && parent.w != w {
		return ErrUnknownParent
	}
	return nil
}

func (w *Writer) attach(node *toc.File, parent *Directory) {
	if parent == nil {
		w.toc.Files = append(w.toc.Files, node)
		return
	}
	parent.node.Children = append(parent.node.Children, node)
}

func (w *Writer) allocID() uint64 {
	id := w.nextID
	w.nextID++
	return id
}

// log returns the configured logger or a no-op logger if none is set.
func (w *Writer) log() *slog.Logger {
	if w.cfg.logger != nil {
		return w.cfg.logger
	}
	return slog.New(slog.DiscardHandler)
}
