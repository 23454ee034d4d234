// Package filestore gives the pipeline its view of the drop directory.
//
// Everything the daemon does to local files (stat for mtime and size,
// sequential reads, removal after a successful upload, touching pre-existing
// files at startup) goes through Store, so tests can point it at a temporary
// directory and production points it at the OS root.
package filestore

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/code19m/errx"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// FileInfo contains metadata about a local file.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	IsDir        bool
}

// Store performs file operations on top of a go-billy filesystem.
// It is safe for concurrent use.
type Store struct {
	fs billy.Filesystem
}

// New wraps fsys. Paths passed to Store methods are resolved by fsys.
func New(fsys billy.Filesystem) *Store {
	return &Store{fs: fsys}
}

// NewOS returns a Store over the host filesystem that accepts absolute paths.
func NewOS() *Store {
	return New(osfs.New("/"))
}

// Stat returns metadata for path. A missing file yields CodeFileNotFound.
func (s *Store) Stat(path string) (FileInfo, error) {
	fi, err := s.fs.Stat(path)
	if err != nil {
		return FileInfo{}, wrapPathErr(err, path)
	}
	return toFileInfo(path, fi), nil
}

// Open opens path for sequential reading. The caller must close it.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, wrapPathErr(err, path)
	}
	return f, nil
}

// Remove deletes path.
func (s *Store) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil {
		return wrapPathErr(err, path)
	}
	return nil
}

// Touch sets the access and modification times of an existing path to now.
// It never creates the file.
func (s *Store) Touch(path string) error {
	if _, err := s.fs.Stat(path); err != nil {
		return wrapPathErr(err, path)
	}

	now := time.Now()
	if ch, ok := s.fs.(billy.Change); ok {
		if err := ch.Chtimes(path, now, now); err != nil {
			return wrapPathErr(err, path)
		}
		return nil
	}

	// osfs chroot helpers do not expose billy.Change
	if err := os.Chtimes(s.fs.Join(s.fs.Root(), path), now, now); err != nil {
		return wrapPathErr(err, path)
	}
	return nil
}

// List returns the entries of dir, non-recursively.
func (s *Store) List(dir string) ([]FileInfo, error) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, wrapPathErr(err, dir)
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, fi := range entries {
		infos = append(infos, toFileInfo(filepath.Join(dir, fi.Name()), fi))
	}
	return infos, nil
}

func toFileInfo(path string, fi os.FileInfo) FileInfo {
	return FileInfo{
		Path:         path,
		Size:         fi.Size(),
		LastModified: fi.ModTime(),
		IsDir:        fi.IsDir(),
	}
}

func wrapPathErr(err error, path string) error {
	if os.IsNotExist(err) {
		return errx.New("file not found",
			errx.WithCode(CodeFileNotFound),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{"path": path}),
		)
	}
	return errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
}
