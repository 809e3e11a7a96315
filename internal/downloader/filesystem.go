package downloader

import (
	"io"
	"os"
)

// FileSystem is the part of the filesystem a Fetcher touches: it creates
// the release folder, probes for a cached artifact, hashes it and rewrites
// it on each attempt.
type FileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	Stat(path string) (os.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
}

// OSFileSystem is the FileSystem of the host.
type OSFileSystem struct{}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (OSFileSystem) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (OSFileSystem) Open(path string) (io.ReadCloser, error) { return os.Open(path) }

// Create truncates an existing file so every attempt starts from zero bytes.
func (OSFileSystem) Create(path string) (io.WriteCloser, error) { return os.Create(path) }
