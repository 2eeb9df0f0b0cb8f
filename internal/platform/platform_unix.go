//go:build unix

package platform

import (
	"io/fs"
	"syscall"
)

// FileOwner reports the uid and gid recorded in info's stat data.
// Infos without stat data, including nil, yield zeros.
func FileOwner(info fs.FileInfo) (uid, gid uint32) {
	if info == nil {
		return 0, 0
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return st.Uid, st.Gid
}
