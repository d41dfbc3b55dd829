// Package osfilesystem provides the local disk implementation of
// ports.FileSystem used for media input and frame output.
package osfilesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/user/mediaio/pkg/ports"
)

// ErrIsDirectory is returned when a media path names a directory.
var ErrIsDirectory = errors.New("is a directory")

// FileSystem implements ports.FileSystem on the local disk.
//
// Writes go through a temporary file in the target directory and are
// renamed into place, so a dumped frame or thumbnail is either complete or
// absent.
type FileSystem struct {
	DirPerm  os.FileMode // default: 0755
	FilePerm os.FileMode // default: 0644
}

// New creates a FileSystem with default permissions.
func New() *FileSystem {
	return &FileSystem{DirPerm: 0755, FilePerm: 0644}
}

// Open opens a media file for random access.
func (fs *FileSystem) Open(path string) (io.ReadSeekCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, ErrIsDirectory)
	}
	return f, nil
}

func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile atomically replaces path with data, creating parent
// directories as needed.
func (fs *FileSystem) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, fs.filePerm()); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (fs *FileSystem) MkdirAll(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, fs.dirPerm())
}

func (fs *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	}
	return false, err
}

func (fs *FileSystem) dirPerm() os.FileMode {
	if fs.DirPerm == 0 {
		return 0755
	}
	return fs.DirPerm
}

func (fs *FileSystem) filePerm() os.FileMode {
	if fs.FilePerm == 0 {
		return 0644
	}
	return fs.FilePerm
}

var _ ports.FileSystem = (*FileSystem)(nil)
