package xar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/meigma/xar/internal/platform"
)

// DefaultMaxFiles is the default entry limit for Pack.
const DefaultMaxFiles = 200_000

// Pack writes an archive of the contents of dir to w.
//
// The tree is walked in lexical order; directories are recreated with
// AddDirectory and regular files become FileSource payloads. Files matching
// the compression predicates (by default DefaultCompressExtensions) are
// gzip-encoded. Symbolic links and other special files are skipped.
//
// The context is checked between entries.
func Pack(ctx context.Context, dir string, w io.Writer, opts ...PackOption) error {
	cfg := packConfig{checksum: ChecksumSHA1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.compressSet {
		cfg.compress = []CompressFunc{CompressExtensions(DefaultCompressExtensions...)}
	}
	maxFiles := cfg.maxFiles
	if maxFiles == 0 {
		maxFiles = DefaultMaxFiles
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()

	writerOpts := append([]WriterOption{WithChecksum(cfg.checksum), WithWriterLogger(logger)}, cfg.writerOpts...)
	xw := NewWriter(writerOpts...)
	logger.Info("packing directory", "dir", dir, "checksum", cfg.checksum)

	dirs := map[string]*Directory{".": nil}
	count := 0
	err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if maxFiles > 0 && count >= maxFiles {
			return fmt.Errorf("%w: limit %d", ErrTooManyFiles, maxFiles)
		}
		parent, ok := dirs[path.Dir(p)]
		if !ok {
			return fmt.Errorf("pack %s: %w", p, ErrUnknownParent)
		}

		switch {
		case d.IsDir():
			handle, err := xw.AddDirectory(d.Name(), parent)
			if err != nil {
				return fmt.Errorf("pack %s: %w", p, err)
			}
			dirs[p] = handle
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			enc := EncodingNone
			if cfg.shouldCompress(p, info) {
				enc = EncodingGzip
			}
			src, err := newFileSource(info, func() (io.ReadCloser, error) {
				return platform.OpenNoFollow(root, filepath.FromSlash(p))
			}, enc, cfg.checksum, cfg.sourceOpts)
			if errors.Is(err, platform.ErrSymlink) {
				logger.Debug("skipping file replaced by symlink", "path", p)
				return nil
			}
			if err != nil {
				return fmt.Errorf("pack %s: %w", p, err)
			}
			if err := xw.AddSource(src, parent); err != nil {
				_ = src.Close() //nolint:errcheck // best-effort cleanup
				return fmt.Errorf("pack %s: %w", p, err)
			}
			logger.Debug("packed file", "path", p, "encoding", enc, "size", src.Size(), "length", src.Length())
		default:
			logger.Debug("skipping special file", "path", p, "type", d.Type())
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		xw.closeSources()
		return err
	}
	return xw.Write(w)
}
