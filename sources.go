package xar

import (
	"bytes"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/meigma/xar/internal/payload"
	"github.com/meigma/xar/internal/platform"
)

// sourceConfig holds options shared by the built-in sources.
type sourceConfig struct {
	modTime time.Time
	mode    fs.FileMode
	level   int
	tempDir string
}

// SourceOption configures a BytesSource or FileSource.
type SourceOption func(*sourceConfig)

// SourceWithModTime sets the modification time recorded for the file.
func SourceWithModTime(t time.Time) SourceOption {
	return func(c *sourceConfig) {
		c.modTime = t
	}
}

// SourceWithMode sets the permission bits recorded for the file.
func SourceWithMode(mode fs.FileMode) SourceOption {
	return func(c *sourceConfig) {
		c.mode = mode
	}
}

// SourceWithCompressionLevel sets the zlib level for gzip-encoded payloads.
func SourceWithCompressionLevel(level int) SourceOption {
	return func(c *sourceConfig) {
		c.level = level
	}
}

// SourceWithTempDir sets where FileSource spills compressed payloads.
// The default is os.TempDir.
func SourceWithTempDir(dir string) SourceOption {
	return func(c *sourceConfig) {
		c.tempDir = dir
	}
}

func newSourceConfig(opts []SourceOption) sourceConfig {
	cfg := sourceConfig{level: flate.DefaultCompression}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// sourceInfo carries the precomputed metadata shared by the built-in sources.
type sourceInfo struct {
	name      string
	size      uint64
	length    uint64
	modTime   time.Time
	mode      fs.FileMode
	uid, gid  uint32
	alg       ChecksumAlgorithm
	extracted string
	archived  string
	encoding  Encoding
}

func (s *sourceInfo) Name() string                         { return s.name }
func (s *sourceInfo) Size() uint64                         { return s.size }
func (s *sourceInfo) Length() uint64                       { return s.length }
func (s *sourceInfo) ModTime() time.Time                   { return s.modTime }
func (s *sourceInfo) ChecksumAlgorithm() ChecksumAlgorithm { return s.alg }
func (s *sourceInfo) ExtractedChecksum() string            { return s.extracted }
func (s *sourceInfo) ArchivedChecksum() string             { return s.archived }
func (s *sourceInfo) Encoding() Encoding                   { return s.encoding }
func (s *sourceInfo) Mode() fs.FileMode                    { return s.mode }
func (s *sourceInfo) Owner() (uid, gid uint32)             { return s.uid, s.gid }

// BytesSource is an in-memory payload.
type BytesSource struct {
	sourceInfo
	encoded []byte
}

// NewBytesSource encodes data with enc and computes both checksums with alg.
func NewBytesSource(name string, data []byte, enc Encoding, alg ChecksumAlgorithm, opts ...SourceOption) (*BytesSource, error) {
	if _, err := enc.MIME(); err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	cfg := newSourceConfig(opts)

	encoded := data
	if enc == EncodingGzip {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, cfg.level)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("source %s: compress: %w", name, err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("source %s: compress: %w", name, err)
		}
		encoded = buf.Bytes()
	}

	modTime := cfg.modTime
	if modTime.IsZero() {
		modTime = time.Now()
	}
	mode := cfg.mode
	if mode == 0 {
		mode = defaultFileMode
	}
	return &BytesSource{
		sourceInfo: sourceInfo{
			name:      name,
			size:      uint64(len(data)),
			length:    uint64(len(encoded)),
			modTime:   modTime,
			mode:      mode,
			alg:       alg,
			extracted: payload.SumBytes(alg, data),
			archived:  payload.SumBytes(alg, encoded),
			encoding:  enc,
		},
		encoded: encoded,
	}, nil
}

// Open returns the encoded payload.
func (s *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.encoded)), nil
}

// FileSource is a payload read from the filesystem.
//
// Uncompressed payloads are streamed from the file at write time. Gzip
// payloads are compressed once, at construction, into a temporary file that
// Close removes; a Writer closes its sources after writing.
type FileSource struct {
	sourceInfo
	open    func() (io.ReadCloser, error)
	tmpPath string
}

// NewFileSource prepares the file at path for writing with enc, computing
// checksums with alg.
func NewFileSource(path string, enc Encoding, alg ChecksumAlgorithm, opts ...SourceOption) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	open := func() (io.ReadCloser, error) {
		return os.Open(path) //nolint:gosec // User-provided path is intentional
	}
	return newFileSource(info, open, enc, alg, opts)
}

// newFileSource builds a FileSource from a stat result and an opener, so
// callers walking an os.Root can keep reads inside it.
func newFileSource(info fs.FileInfo, open func() (io.ReadCloser, error), enc Encoding, alg ChecksumAlgorithm, opts []SourceOption) (*FileSource, error) {
	name := info.Name()
	if !info.Mode().IsRegular() {
		return nil, &fs.PathError{Op: "source", Path: name, Err: fs.ErrInvalid}
	}
	if _, err := enc.MIME(); err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	cfg := newSourceConfig(opts)

	modTime := cfg.modTime
	if modTime.IsZero() {
		modTime = info.ModTime()
	}
	mode := cfg.mode
	if mode == 0 {
		mode = info.Mode().Perm()
	}
	uid, gid := platform.FileOwner(info)

	s := &FileSource{
		sourceInfo: sourceInfo{
			name:     name,
			modTime:  modTime,
			mode:     mode,
			uid:      uid,
			gid:      gid,
			alg:      alg,
			encoding: enc,
		},
		open: open,
	}
	if enc == EncodingGzip {
		if err := s.spill(cfg); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

// scan hashes an uncompressed file; both checksums cover the same bytes.
func (s *FileSource) scan() error {
	rc, err := s.open()
	if err != nil {
		return fmt.Errorf("open source %s: %w", s.name, err)
	}
	defer rc.Close()

	cr := &payload.CountingReader{R: rc}
	sum, err := payload.Sum(s.alg, cr)
	if err == nil && s.alg == ChecksumNone {
		_, err = io.Copy(io.Discard, cr)
	}
	if err != nil {
		return fmt.Errorf("read source %s: %w", s.name, err)
	}
	s.size = cr.Count()
	s.length = cr.Count()
	s.extracted = sum
	s.archived = sum
	return nil
}

// spill compresses the file into a temp file, hashing both sides.
func (s *FileSource) spill(cfg sourceConfig) (err error) {
	rc, err := s.open()
	if err != nil {
		return fmt.Errorf("open source %s: %w", s.name, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(cfg.tempDir, "xar-src-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if cerr := tmp.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close temp file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}()

	extracted, archived := s.alg.New(), s.alg.New()
	out := &payload.CountingWriter{W: withHash(tmp, archived)}
	zw, err := zlib.NewWriterLevel(out, cfg.level)
	if err != nil {
		return fmt.Errorf("source %s: %w", s.name, err)
	}
	in := &payload.CountingReader{R: rc}
	if _, err := io.Copy(zw, withHashReader(in, extracted)); err != nil {
		return fmt.Errorf("compress source %s: %w", s.name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress source %s: %w", s.name, err)
	}

	s.size = in.Count()
	s.length = out.Count()
	s.extracted = hexSum(extracted)
	s.archived = hexSum(archived)
	s.tmpPath = tmp.Name()
	s.open = func() (io.ReadCloser, error) {
		return os.Open(s.tmpPath)
	}
	return nil
}

// Open returns the encoded payload.
func (s *FileSource) Open() (io.ReadCloser, error) {
	return s.open()
}

// Close removes the temporary compressed copy, if any.
func (s *FileSource) Close() error {
	if s.tmpPath == "" {
		return nil
	}
	err := os.Remove(s.tmpPath)
	s.tmpPath = ""
	return err
}

func withHash(w io.Writer, h hash.Hash) io.Writer {
	if h == nil {
		return w
	}
	return io.MultiWriter(w, h)
}

func withHashReader(r io.Reader, h hash.Hash) io.Reader {
	if h == nil {
		return r
	}
	return io.TeeReader(r, h)
}

func hexSum(h hash.Hash) string {
	if h == nil {
		return ""
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Interface compliance.
var (
	_ Source          = (*BytesSource)(nil)
	_ Source          = (*FileSource)(nil)
	_ attributeSource = (*BytesSource)(nil)
	_ io.Closer       = (*FileSource)(nil)
)
