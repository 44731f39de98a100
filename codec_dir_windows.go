//go:build windows

package wpkgar

import "io/fs"

// statOwner is a stub: Windows exposes no numeric uid/gid through os.Lstat.
func statOwner(fs.FileInfo) (uid, gid int, ok bool) {
	return 0, 0, false
}
