//go:build unix

package wpkgar

import (
	"io/fs"
	"syscall"
)

// statOwner extracts numeric ownership from a stat result.
func statOwner(st fs.FileInfo) (uid, gid int, ok bool) {
	sys, ok := st.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return int(sys.Uid), int(sys.Gid), true
}
