package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/meigma/xar"
)

// create packs the single directory argument into a local archive file.
func (c *cli) create(ctx context.Context, location string, args []string) (err error) {
	if len(args) != 1 {
		return errors.New("create takes exactly one directory")
	}
	alg, err := xar.ParseChecksumAlgorithm(c.v.GetString(flagChecksum))
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(location), ".xar-create-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", location, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()           //nolint:errcheck // best-effort cleanup
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}()

	if err := xar.Pack(ctx, args[0], tmp, xar.PackWithChecksum(alg), xar.PackWithLogger(c.logger)); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), location); err != nil {
		return err
	}
	c.logger.Info("created archive", "path", location, "checksum", alg)
	return nil
}

// extract writes the named entries, or the whole archive, below -C.
func (c *cli) extract(ctx context.Context, location string, args []string) error {
	dest := c.v.GetString(flagDir)
	verify := c.v.GetBool(flagVerify)
	verbose := c.v.GetInt(flagVerbose) > 0
	// The callback runs on extraction workers.
	var outMu sync.Mutex
	opts := []xar.ExtractOption{
		xar.ExtractWithVerify(verify),
		xar.ExtractWithWorkers(c.v.GetInt(flagWorkers)),
		xar.ExtractWithLogger(c.logger),
		xar.ExtractWithPreserveMode(true),
		xar.ExtractWithPreserveTimes(true),
		xar.ExtractWithCallback(func(e *xar.Entry, verifyErr error) {
			if verifyErr != nil {
				return
			}
			if !verbose {
				return
			}
			outMu.Lock()
			defer outMu.Unlock()
			fmt.Fprintln(c.out, e.Path())
		}),
	}

	return c.withArchive(ctx, location, func(a *xar.Archive) error {
		if len(args) == 0 {
			return a.ExtractAll(dest, opts...)
		}
		var errs []error
		for _, p := range args {
			e, ok := a.Entry(p)
			if !ok {
				errs = append(errs, fmt.Errorf("%s: %w", p, xar.ErrNotFound))
				continue
			}
			if err := e.Extract(dest, opts...); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// list prints entry paths; with -v it adds mode, owner, size and mtime.
func (c *cli) list(ctx context.Context, location string, args []string) error {
	verbose := c.v.GetInt(flagVerbose) > 0
	return c.withArchive(ctx, location, func(a *xar.Archive) error {
		entries := a.Entries()
		if len(args) > 0 {
			entries = entries[:0:0]
			for _, p := range args {
				e, ok := a.Entry(p)
				if !ok {
					return fmt.Errorf("%s: %w", p, xar.ErrNotFound)
				}
				entries = append(entries, e)
				for child := range a.EntriesWithPrefix(e.Path() + "/") {
					entries = append(entries, child)
				}
			}
		}

		tw := tabwriter.NewWriter(c.out, 0, 4, 1, ' ', tabwriter.AlignRight)
		for _, e := range entries {
			if !verbose {
				fmt.Fprintln(c.out, e.Path())
				continue
			}
			owner := e.User()
			if owner == "" {
				owner = fmt.Sprint(e.UID())
			}
			group := e.Group()
			if group == "" {
				group = fmt.Sprint(e.GID())
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t %s\t %s\n",
				e.Mode(), owner, group, e.Size(), e.ModTime().UTC().Format(time.DateTime), e.Path())
		}
		return tw.Flush()
	})
}

func (c *cli) dumpHeader(ctx context.Context, location string) error {
	return c.withArchive(ctx, location, func(a *xar.Archive) error {
		h := a.Header()
		tw := tabwriter.NewWriter(c.out, 0, 4, 1, ' ', 0)
		fmt.Fprintf(tw, "magic:\t%#08x\n", h.Magic)
		fmt.Fprintf(tw, "size:\t%d\n", h.Size)
		fmt.Fprintf(tw, "version:\t%d\n", h.Version)
		fmt.Fprintf(tw, "toc length compressed:\t%d\n", h.TOCLengthCompressed)
		fmt.Fprintf(tw, "toc length uncompressed:\t%d\n", h.TOCLengthUncompressed)
		fmt.Fprintf(tw, "checksum algorithm:\t%d (%s)\n", uint32(h.ChecksumAlgorithm), h.ChecksumAlgorithm)
		fmt.Fprintf(tw, "toc digest:\t%s\n", a.TOCDigest())
		return tw.Flush()
	})
}

// dumpTOC writes the uncompressed TOC to target, or stdout for "-".
func (c *cli) dumpTOC(ctx context.Context, location, target string) error {
	return c.withArchive(ctx, location, func(a *xar.Archive) error {
		raw, err := a.RawTOC()
		if err != nil {
			return err
		}
		if target == "-" {
			_, err := c.out.Write(raw)
			return err
		}
		return writeFile(target, raw)
	})
}

func writeFile(path string, data []byte) error {
	f, err := os.Create(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	return f.Close()
}
