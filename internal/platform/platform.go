// Package platform isolates operating-system specific file access for
// packing: numeric ownership and opening files inside an os.Root without
// following a final symbolic link.
package platform

import (
	"errors"
	"io/fs"
	"os"
)

// ErrSymlink is returned by OpenNoFollow when name is a symbolic link.
var ErrSymlink = errors.New("platform: refusing to follow symbolic link")

// OpenNoFollow opens name read-only inside root, refusing symbolic links.
//
// os.Root resolves a final symlink that stays inside the root, so name is
// checked with Lstat first and the opened file must be the same file the
// Lstat saw. A link swapped in between the two calls fails with ErrSymlink.
func OpenNoFollow(root *os.Root, name string) (*os.File, error) {
	info, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrSymlink}
	}

	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	opened, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !os.SameFile(info, opened) {
		_ = f.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrSymlink}
	}
	return f, nil
}
