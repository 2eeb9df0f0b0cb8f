package xar

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// CompressFunc reports whether a file should be stored gzip-encoded.
// It is called once per file and should be inexpensive.
type CompressFunc func(path string, info fs.FileInfo) bool

// DefaultCompressExtensions lists the extensions Pack compresses by default.
var DefaultCompressExtensions = []string{"txt", "htm", "html", "css", "js", "xml", "stxml"}

// CompressExtensions returns a CompressFunc matching file extensions,
// given without the leading dot and compared case-insensitively.
func CompressExtensions(exts ...string) CompressFunc {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return func(path string, _ fs.FileInfo) bool {
		_, ok := set[strings.ToLower(filepath.Ext(path))]
		return ok
	}
}

// packConfig holds configuration for Pack.
type packConfig struct {
	checksum    ChecksumAlgorithm
	compress    []CompressFunc
	sourceOpts  []SourceOption
	writerOpts  []WriterOption
	logger      *slog.Logger
	compressSet bool
	maxFiles    int
}

// PackOption configures Pack.
type PackOption func(*packConfig)

// PackWithChecksum sets the checksum algorithm for the TOC and every payload.
func PackWithChecksum(alg ChecksumAlgorithm) PackOption {
	return func(c *packConfig) {
		c.checksum = alg
	}
}

// PackWithCompression adds predicates selecting files to gzip-encode.
// A file is compressed if any predicate returns true. Supplying predicates
// replaces the default extension list.
func PackWithCompression(fns ...CompressFunc) PackOption {
	return func(c *packConfig) {
		c.compress = append(c.compress, fns...)
		c.compressSet = true
	}
}

// PackWithSourceOptions passes options to every FileSource Pack creates.
func PackWithSourceOptions(opts ...SourceOption) PackOption {
	return func(c *packConfig) {
		c.sourceOpts = append(c.sourceOpts, opts...)
	}
}

// PackWithWriterOptions passes options to the underlying Writer.
func PackWithWriterOptions(opts ...WriterOption) PackOption {
	return func(c *packConfig) {
		c.writerOpts = append(c.writerOpts, opts...)
	}
}

// PackWithLogger sets the logger for Pack.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(c *packConfig) {
		c.logger = logger
	}
}

// PackWithMaxFiles limits the number of entries packed.
// Zero uses DefaultMaxFiles. Negative means no limit.
func PackWithMaxFiles(n int) PackOption {
	return func(c *packConfig) {
		c.maxFiles = n
	}
}

func (c *packConfig) shouldCompress(path string, info fs.FileInfo) bool {
	for _, fn := range c.compress {
		if fn != nil && fn(path, info) {
			return true
		}
	}
	return false
}
