package xartype

import (
	"fmt"
	"strings"
)

// FileType distinguishes regular files from directories in the TOC.
type FileType uint8

const (
	TypeFile FileType = iota
	TypeDirectory
)

// String returns the lower-case wire name.
func (t FileType) String() string {
	if t == TypeDirectory {
		return "directory"
	}
	return "file"
}

// ParseFileType maps a type name to a FileType, ignoring case.
func ParseFileType(s string) (FileType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file":
		return TypeFile, nil
	case "directory":
		return TypeDirectory, nil
	default:
		return TypeFile, fmt.Errorf("unknown file type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t FileType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FileType) UnmarshalText(b []byte) error {
	v, err := ParseFileType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
