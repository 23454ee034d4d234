// Package watch turns filesystem activity under the drop directory into
// upload submissions.
//
// Source delivers raw events for the whole tree under the root. Detector
// polls each interesting path until its modification time stops moving and
// then hands it to the scheduler.
package watch

import (
	"context"
	"path/filepath"

	"github.com/code19m/errx"
	"github.com/fsnotify/fsnotify"

	"github.com/rise-and-shine/dropsync/filestore"
	"github.com/rise-and-shine/dropsync/observability/logger"
)

// Event is a raw filesystem notification.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Actionable reports whether the event may mean a file appeared or changed.
// Removals and renames are not actionable; a tracked path notices its own
// deletion on the next poll.
func (e Event) Actionable() bool {
	return e.Op.Has(fsnotify.Create) || e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Chmod)
}

// FileSystem is the part of filestore.Store the source and the startup
// touch need.
type FileSystem interface {
	Stat(path string) (filestore.FileInfo, error)
	List(dir string) ([]filestore.FileInfo, error)
	Touch(path string) error
}

// Source watches root and every directory below it.
type Source struct {
	root    string
	fs      FileSystem
	watcher *fsnotify.Watcher
	logger  logger.Logger
}

// NewSource starts watching root recursively. Events are delivered once Run is called.
func NewSource(root string, fs FileSystem) (*Source, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	s := &Source{
		root:    filepath.Clean(root),
		fs:      fs,
		watcher: w,
		logger:  logger.Named("watch.source"),
	}
	if _, err = s.addTree(s.root); err != nil {
		_ = w.Close()
		return nil, errx.Wrap(err)
	}
	return s, nil
}

// Root returns the watched directory.
func (s *Source) Root() string {
	return s.root
}

// Run delivers events to handle until ctx is done, then closes the watcher.
func (s *Source) Run(ctx context.Context, handle func(Event)) error {
	defer s.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.dispatch(ev, handle)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.With("error", err.Error()).Warn("filesystem watcher error")
		}
	}
}

func (s *Source) dispatch(ev fsnotify.Event, handle func(Event)) {
	path := filepath.Clean(ev.Name)

	if ev.Has(fsnotify.Create) {
		info, err := s.fs.Stat(path)
		if err == nil && info.IsDir {
			// files created before the watch was added would go unnoticed
			files, addErr := s.addTree(path)
			if addErr != nil {
				s.logger.Warnx(addErr)
			}
			for _, f := range files {
				handle(Event{Path: f, Op: fsnotify.Create})
			}
			return
		}
	}

	handle(Event{Path: path, Op: ev.Op})
}

// addTree watches dir and its non-hidden subdirectories and returns the
// regular files found along the way.
func (s *Source) addTree(dir string) ([]string, error) {
	if dir != s.root && hidden(filepath.Base(dir)) {
		return nil, nil
	}
	if err := s.watcher.Add(dir); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"dir": dir}))
	}

	entries, err := s.fs.List(dir)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir {
			files = append(files, e.Path)
			continue
		}
		sub, subErr := s.addTree(e.Path)
		if subErr != nil {
			return files, subErr
		}
		files = append(files, sub...)
	}
	return files, nil
}

// TouchExisting refreshes the mtime of every trackable file already under
// root, so files that were dropped while the daemon was down produce events
// and go through the normal polling path. Files are never created.
func TouchExisting(fs FileSystem, root string) (int, error) {
	root = filepath.Clean(root)
	return touchTree(fs, root, root)
}

func touchTree(fs FileSystem, root, dir string) (int, error) {
	entries, err := fs.List(dir)
	if err != nil {
		return 0, errx.Wrap(err)
	}

	touched := 0
	for _, e := range entries {
		if e.IsDir {
			if hidden(filepath.Base(e.Path)) {
				continue
			}
			n, subErr := touchTree(fs, root, e.Path)
			touched += n
			if subErr != nil {
				return touched, subErr
			}
			continue
		}
		if ignored(root, e.Path) {
			continue
		}
		if err = fs.Touch(e.Path); err != nil {
			logger.Named("watch.touch").Warnx(err)
			continue
		}
		touched++
	}
	return touched, nil
}
