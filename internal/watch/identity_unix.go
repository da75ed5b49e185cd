//go:build !windows

package watch

import (
	"golang.org/x/sys/unix"
)

// fileID identifies a file across a rename on the same device
type fileID struct {
	dev uint64
	ino uint64
}

// statID returns the identity of path without following symlinks and
// whether it is a directory.
func statID(path string) (fileID, bool, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return fileID{}, false, err
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, st.Mode&unix.S_IFMT == unix.S_IFDIR, nil
}
