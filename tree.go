package xar

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/tidwall/btree"

	"github.com/meigma/xar/internal/payload"
	"github.com/meigma/xar/internal/sizing"
	"github.com/meigma/xar/internal/toc"
	"github.com/meigma/xar/internal/xartype"
)

// buildFrame is a pending TOC node and the entry it will attach to.
type buildFrame struct {
	node   *toc.File
	parent *Entry
}

// buildEntries flattens the TOC tree with an explicit stack so deep trees
// cannot exhaust the goroutine stack. Siblings are pushed in reverse so they
// pop in declaration order; the flat list is a pre-order walk and every
// child list keeps the order of the TOC.
func (a *Archive) buildEntries(files []*toc.File) error {
	// The index is read-only once Open returns.
	a.index = btree.NewBTreeGOptions(entryLess, btree.Options{NoLocks: true})
	a.entries = make([]*Entry, 0, len(files))

	stack := make([]buildFrame, 0, len(files))
	for i := len(files) - 1; i >= 0; i-- {
		stack = append(stack, buildFrame{node: files[i]})
	}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		e, err := a.newEntry(fr.node, fr.parent)
		if err != nil {
			return err
		}
		if _, dup := a.index.Set(e); dup {
			return fmt.Errorf("%w: duplicate path %q", ErrTOCParse, e.path)
		}
		a.entries = append(a.entries, e)
		if fr.parent != nil {
			fr.parent.children = append(fr.parent.children, e)
		} else {
			a.roots = append(a.roots, e)
		}

		if !fr.node.IsDir() {
			continue
		}
		for i := len(fr.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, buildFrame{node: fr.node.Children[i], parent: e})
		}
	}
	return nil
}

// newEntry converts a TOC node into an Entry with an absolute payload offset.
func (a *Archive) newEntry(node *toc.File, parent *Entry) (*Entry, error) {
	if err := validateName(node.Name); err != nil {
		return nil, fmt.Errorf("%w: file id %d: %w", ErrTOCParse, node.ID, err)
	}
	path := node.Name
	if parent != nil {
		path = parent.path + "/" + node.Name
	}

	e := &Entry{
		archive: a,
		parent:  parent,
		id:      node.ID,
		name:    node.Name,
		path:    path,
		dir:     node.IsDir(),
		mode:    parseMode(node.Mode, node.IsDir()),
		uid:     parseID(node.UID),
		gid:     parseID(node.GID),
		user:    node.User,
		group:   node.Group,
	}
	if node.MTime != nil {
		e.modTime = node.MTime.Time
	}
	e.created = node.FinderCreateTime.Value()

	if node.Data != nil {
		sec, err := a.section(path, node.Data)
		if err != nil {
			return nil, err
		}
		e.hasData = true
		e.section = sec
		if cs := node.Data.Extracted(); cs != nil {
			e.hasChecksum = true
			e.checksumAlg = cs.Style
			e.checksum = strings.TrimSpace(cs.Value)
		}
		if cs := node.Data.ArchivedChecksum; cs != nil {
			e.archivedAlg = cs.Style
			e.archivedChecksum = strings.TrimSpace(cs.Value)
		}
	}
	for _, ea := range node.EAs {
		sec, err := a.section(path+"@"+ea.Name, &ea.Data)
		if err != nil {
			return nil, err
		}
		e.attrs = append(e.attrs, ExtendedAttribute{Name: ea.Name, entry: e, section: sec})
	}
	return e, nil
}

// section resolves a data block against the heap offset.
func (a *Archive) section(path string, d *toc.Data) (payload.Section, error) {
	off, err := sizing.Add(a.heapOffset, d.Offset)
	if err != nil {
		return payload.Section{}, fmt.Errorf("%s: %w", path, err)
	}
	return payload.Section{
		Path:     path,
		Offset:   off,
		Length:   d.Length,
		Size:     d.Size,
		Encoding: d.EncodingKind(),
	}, nil
}

func entryLess(a, b *Entry) bool {
	return a.path < b.path
}

// validateName rejects names that would not form a single path element.
func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: name %q", xartype.ErrInvalidPath, name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: name %q", xartype.ErrInvalidPath, name)
	}
	return nil
}

func parseMode(s string, dir bool) fs.FileMode {
	var mode fs.FileMode
	if v, err := strconv.ParseUint(strings.TrimSpace(s), 8, 32); err == nil {
		mode = fs.FileMode(v) & fs.ModePerm
	}
	if dir {
		mode |= fs.ModeDir
	}
	return mode
}

func parseID(s string) uint32 {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
