package xar

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/xar/internal/payload"
)

const defaultFileMode fs.FileMode = 0o644

// Extract writes the entry below dest.
//
// For a file, the target is dest itself when dest is an existing regular
// file, and dest/<entry path> otherwise; missing parent directories are
// created. For a directory, every entry below it is extracted into
// dest/<entry path>. A failing entry does not stop its siblings; all failures
// are joined into the returned error.
func (e *Entry) Extract(dest string, opts ...ExtractOption) error {
	a := e.archive
	cfg := a.newExtractConfig(opts)
	if !e.dir {
		return a.extractFile(dest, e, cfg)
	}

	if err := ensureDir(dest); err != nil {
		return err
	}
	var selected []*Entry
	for child := range a.EntriesWithPrefix(e.path + "/") {
		selected = append(selected, child)
	}
	cfg.logger.Info("extracting directory", "path", e.path, "dest", dest, "entries", len(selected))
	if err := mkdirEntry(dest, e); err != nil {
		return err
	}
	return a.extractEntries(dest, selected, cfg)
}

// ExtractAll writes every entry of the archive below the directory dest.
func (a *Archive) ExtractAll(dest string, opts ...ExtractOption) error {
	cfg := a.newExtractConfig(opts)
	if err := ensureDir(dest); err != nil {
		return err
	}
	cfg.logger.Info("extracting archive", "dest", dest, "entries", len(a.entries), "workers", cfg.workers)
	return a.extractEntries(dest, a.entries, cfg)
}

// extractEntries creates directory entries, then extracts files with a
// bounded worker pool, collecting every failure.
func (a *Archive) extractEntries(dest string, entries []*Entry, cfg *extractConfig) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	files := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if !e.dir {
			files = append(files, e)
			continue
		}
		if err := mkdirEntry(dest, e); err != nil {
			record(err)
		}
	}

	var g errgroup.Group
	g.SetLimit(cfg.workers)
	for _, e := range files {
		g.Go(func() error {
			if err := a.extractTo(dest, filepath.FromSlash(e.path), e, cfg); err != nil {
				record(err)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers report through record
	return errors.Join(errs...)
}

// extractFile resolves the target for a single file entry.
func (a *Archive) extractFile(dest string, e *Entry, cfg *extractConfig) error {
	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() {
		return a.extractTo(filepath.Dir(dest), filepath.Base(dest), e, cfg)
	}
	if err := ensureDir(dest); err != nil {
		return err
	}
	return a.extractTo(dest, filepath.FromSlash(e.path), e, cfg)
}

// extractTo writes e to rel inside the directory dir through a temp file
// and an atomic rename, then optionally verifies the written bytes.
func (a *Archive) extractTo(dir, rel string, e *Entry, cfg *extractConfig) error {
	if !fs.ValidPath(filepath.ToSlash(rel)) {
		return &fs.PathError{Op: "extract", Path: e.path, Err: ErrInvalidPath}
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("open destination root %s: %w", dir, err)
	}
	defer root.Close()

	if err := root.MkdirAll(filepath.Dir(rel), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", e.path, err)
	}
	if err := a.writeEntry(root, rel, e, cfg); err != nil {
		return fmt.Errorf("extract %s: %w", e.path, err)
	}

	var verifyErr error
	if cfg.verify {
		verifyErr = verifyWritten(root, rel, e)
	}
	if cfg.onExtracted != nil {
		cfg.onExtracted(e, verifyErr)
	}
	if verifyErr != nil {
		cfg.logger.Warn("verification failed", "path", e.path, "error", verifyErr)
		return verifyErr
	}
	cfg.logger.Debug("extracted", "path", e.path, "size", e.Size())
	return nil
}

func (a *Archive) writeEntry(root *os.Root, rel string, e *Entry, cfg *extractConfig) error {
	src, err := e.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, tmpRel, err := createTempFile(root, filepath.Dir(rel), ".xar-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	discard := func() {
		_ = tmp.Close()         //nolint:errcheck // best-effort cleanup
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
	}

	if _, err := io.Copy(tmp, src); err != nil {
		discard()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}

	mode := defaultFileMode
	if cfg.preserveMode && e.mode.Perm() != 0 {
		mode = e.mode.Perm()
	}
	if err := root.Chmod(tmpRel, mode); err != nil {
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("chmod: %w", err)
	}
	if cfg.preserveTimes && !e.modTime.IsZero() {
		if err := root.Chtimes(tmpRel, e.modTime, e.modTime); err != nil {
			_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
			return fmt.Errorf("chtimes: %w", err)
		}
	}
	if err := root.Rename(tmpRel, rel); err != nil {
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", rel, err)
	}
	return nil
}

// verifyWritten hashes the file on disk and compares it with the TOC checksum.
// Entries with algorithm none, or with no checksum and no content, are skipped.
func verifyWritten(root *os.Root, rel string, e *Entry) error {
	if !e.hasChecksum {
		if e.Size() == 0 {
			return nil
		}
		return fmt.Errorf("%w: %s: no extracted checksum recorded", ErrIntegrity, e.path)
	}
	if e.checksumAlg == ChecksumNone {
		return nil
	}
	f, err := root.Open(rel)
	if err != nil {
		return fmt.Errorf("verify %s: %w", e.path, err)
	}
	defer f.Close()
	if err := payload.Verify(e.checksumAlg, e.checksum, f); err != nil {
		return fmt.Errorf("verify %s: %w", e.path, err)
	}
	return nil
}

func mkdirEntry(dest string, e *Entry) error {
	if !fs.ValidPath(e.path) {
		return &fs.PathError{Op: "mkdir", Path: e.path, Err: ErrInvalidPath}
	}
	root, err := os.OpenRoot(dest)
	if err != nil {
		return fmt.Errorf("open destination root %s: %w", dest, err)
	}
	defer root.Close()
	if err := root.MkdirAll(filepath.FromSlash(e.path), 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", e.path, err)
	}
	return nil
}

func ensureDir(dest string) error {
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("create destination %s: %w", dest, err)
	}
	return nil
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
