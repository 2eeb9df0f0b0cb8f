// Package toc maps the xar table of contents between its XML wire form and Go values.
//
// Element names are hyphenated lower case ("creation-time", "extracted-checksum").
// Enumerated values are matched case-insensitively on read and written in lower case.
package toc

import (
	"encoding/xml"
	"time"

	"github.com/meigma/xar/internal/xartype"
)

// document is the root <xar> element.
type document struct {
	XMLName xml.Name `xml:"xar"`
	TOC     TOC      `xml:"toc"`
}

// TOC is the decoded <toc> element.
type TOC struct {
	Checksum     *Checksum  `xml:"checksum,omitempty"`
	CreationTime *Timestamp `xml:"creation-time,omitempty"`
	Files        []*File    `xml:"file"`
}

// Checksum locates the TOC checksum in the heap.
type Checksum struct {
	Style  xartype.ChecksumAlgorithm `xml:"style,attr"`
	Size   uint64                    `xml:"size"`
	Offset uint64                    `xml:"offset"`
}

// File is a <file> node. Children are only meaningful for directories.
type File struct {
	ID               uint64           `xml:"id,attr"`
	Name             string           `xml:"name"`
	Type             xartype.FileType `xml:"type"`
	Mode             string           `xml:"mode,omitempty"`
	UID              string           `xml:"uid,omitempty"`
	User             string           `xml:"user,omitempty"`
	GID              string           `xml:"gid,omitempty"`
	Group            string           `xml:"group,omitempty"`
	ATime            *Timestamp       `xml:"atime,omitempty"`
	MTime            *Timestamp       `xml:"mtime,omitempty"`
	CTime            *Timestamp       `xml:"ctime,omitempty"`
	FinderCreateTime *FinderTime      `xml:"finder-create-time,omitempty"`
	Inode            string           `xml:"inode,omitempty"`
	DeviceNo         string           `xml:"deviceno,omitempty"`
	Data             *Data            `xml:"data,omitempty"`
	EAs              []*EA            `xml:"ea"`
	Children         []*File          `xml:"file"`
}

// FinderTime is a <finder-create-time> node: a date plus a separate
// nanosecond count.
type FinderTime struct {
	Time        *Timestamp `xml:"time"`
	Nanoseconds int64      `xml:"nanoseconds"`
}

// Value returns the combined time, or the zero time when no date is recorded.
func (f *FinderTime) Value() time.Time {
	if f == nil || f.Time == nil {
		return time.Time{}
	}
	return f.Time.Time.Add(time.Duration(f.Nanoseconds))
}

// IsDir reports whether the node is a directory.
func (f *File) IsDir() bool {
	return f.Type == xartype.TypeDirectory
}

// Data describes a payload stored in the heap.
// Offset is relative to the first byte after the compressed TOC.
type Data struct {
	Length             uint64         `xml:"length"`
	Offset             uint64         `xml:"offset"`
	Size               uint64         `xml:"size"`
	Encoding           *EncodingStyle `xml:"encoding,omitempty"`
	ArchivedChecksum   *FileChecksum  `xml:"archived-checksum,omitempty"`
	ExtractedChecksum  *FileChecksum  `xml:"extracted-checksum,omitempty"`
	UnarchivedChecksum *FileChecksum  `xml:"unarchived-checksum,omitempty"`
}

// Extracted returns the checksum of the decoded content.
// The legacy unarchived-checksum element is used when extracted-checksum is absent.
func (d *Data) Extracted() *FileChecksum {
	if d.ExtractedChecksum != nil {
		return d.ExtractedChecksum
	}
	return d.UnarchivedChecksum
}

// EncodingKind returns the payload encoding. A missing element means none.
func (d *Data) EncodingKind() xartype.Encoding {
	if d.Encoding == nil {
		return xartype.EncodingNone
	}
	return xartype.ParseEncoding(d.Encoding.Style)
}

// EncodingStyle is the <encoding style="mime/type"/> element.
type EncodingStyle struct {
	Style string `xml:"style,attr"`
}

// FileChecksum is a hex digest with its algorithm in the style attribute.
type FileChecksum struct {
	Style xartype.ChecksumAlgorithm `xml:"style,attr"`
	Value string                    `xml:",chardata"`
}

// EA is an extended attribute: a named payload attached to a file.
type EA struct {
	ID   uint64 `xml:"id,attr"`
	Name string `xml:"name"`
	Data
}
