//go:build unix

package engine

import (
	"fmt"
	"io/fs"
	"syscall"
)

// inodeOf extracts the inode number from a FileInfo. Returns an error
// if the underlying Sys() type is not *syscall.Stat_t, which would
// happen with synthetic filesystems that don't provide real stat data.
func inodeOf(info fs.FileInfo) (uint64, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("cannot extract inode: expected *syscall.Stat_t, got %T", info.Sys())
	}
	return stat.Ino, nil
}
