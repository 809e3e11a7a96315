//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package system

// FreeSpace is not available on this platform.
func FreeSpace(string) (uint64, error) {
	return 0, ErrUnsupported
}
