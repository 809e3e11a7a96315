// Package system inspects and tidies the host working directory.
package system

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	apperrors "APKBackup/internal/errors"
)

// Info describes the host a run executes on.
type Info struct {
	OS      string
	Arch    string
	WorkDir string
	// FreeBytes is 0 when the platform cannot report free space.
	FreeBytes uint64
}

func newSystemError(operation, message string, err error, metadata apperrors.Metadata) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, message, err,
		apperrors.WithMetadata(metadata)).
		WithModule("system").
		WithOperation(operation)
}

// PrepareWorkDir creates dir and checks that files can be written into it.
func PrepareWorkDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newSystemError("system.PrepareWorkDir", "failed to create working directory", err,
			apperrors.Metadata{"dir": dir})
	}

	probe, err := os.CreateTemp(dir, ".apkbackup-probe-*")
	if err != nil {
		return newSystemError("system.PrepareWorkDir", "working directory is not writable", err,
			apperrors.Metadata{"dir": dir})
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return newSystemError("system.PrepareWorkDir", "failed to remove probe file", err,
			apperrors.Metadata{"path": name})
	}
	return nil
}

// Describe reports the platform and free space of dir.
func Describe(dir string) (Info, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Info{}, errors.Wrapf(err, "resolve %s", dir)
	}
	info := Info{OS: runtime.GOOS, Arch: runtime.GOARCH, WorkDir: abs}

	free, err := FreeSpace(abs)
	if err != nil && !errors.Is(err, ErrUnsupported) {
		return info, err
	}
	info.FreeBytes = free
	return info, nil
}
