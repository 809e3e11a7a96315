//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package system

import (
	"golang.org/x/sys/unix"

	apperrors "APKBackup/internal/errors"
)

// FreeSpace returns the bytes available to unprivileged users on the
// filesystem holding path.
func FreeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, newSystemError("system.FreeSpace", "statfs failed", err, apperrors.Metadata{"path": path})
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
