package watch

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"

	"github.com/rise-and-shine/dropsync/filestore"
	"github.com/rise-and-shine/dropsync/meta"
	"github.com/rise-and-shine/dropsync/observability/logger"
	"github.com/rise-and-shine/dropsync/observability/stats"
	"github.com/rise-and-shine/dropsync/pathstate"
)

// Stater reads file metadata.
type Stater interface {
	Stat(path string) (filestore.FileInfo, error)
}

// SubmitFunc hands a stable path to the upload scheduler. It returns false
// if the path was not accepted.
type SubmitFunc func(path string) bool

var (
	errNotStable = errors.New("file not stable yet")
	errDeleted   = errors.New("file deleted while watched")
)

// watchedPath is the per-file polling state, owned by one poll goroutine.
type watchedPath struct {
	path  string
	base  string
	ext   string
	mtime time.Time
	polls uint
}

// Detector waits for files to stop changing before submitting them.
//
// Each tracked path gets its own goroutine that stats the file up to
// pollAttempts times, pollInterval apart, starting immediately. Two
// consecutive polls observing the same mtime make the file Stable.
type Detector struct {
	root   string
	store  Stater
	table  *pathstate.Table
	submit SubmitFunc

	interval time.Duration
	attempts uint

	wg     sync.WaitGroup
	logger logger.Logger
}

// NewDetector creates a Detector for files under root.
func NewDetector(root string, store Stater, table *pathstate.Table, submit SubmitFunc, opts ...Option) *Detector {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Detector{
		root:     filepath.Clean(root),
		store:    store,
		table:    table,
		submit:   submit,
		interval: o.pollInterval,
		attempts: o.pollAttempts,
		logger:   logger.Named("watch.detector"),
	}
}

// Handle reacts to a raw filesystem event.
func (d *Detector) Handle(ctx context.Context, ev Event) {
	if !ev.Actionable() {
		return
	}
	d.Observe(ctx, ev.Path)
}

// Observe starts polling path unless it is ignored or already tracked.
// It returns true when a new poll cycle was started.
func (d *Detector) Observe(ctx context.Context, path string) bool {
	path = filepath.Clean(path)
	if ignored(d.root, path) {
		return false
	}
	if !d.table.Track(path) {
		return false
	}

	stats.Inc(stats.FilesTracked)
	w := &watchedPath{
		path: path,
		base: filepath.Base(path),
		ext:  filepath.Ext(path),
	}
	d.wg.Go(func() {
		d.watch(ctx, w)
	})
	return true
}

// Wait blocks until every running poll cycle has finished.
func (d *Detector) Wait() {
	d.wg.Wait()
}

func (d *Detector) watch(ctx context.Context, w *watchedPath) {
	ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{
		meta.FilePath:  w.path,
		meta.Operation: "watch",
	})
	log := d.logger.WithContext(ctx)

	err := retry.Do(
		func() error { return d.poll(log, w) },
		retry.Context(ctx),
		retry.Attempts(d.attempts),
		retry.Delay(d.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)

	switch {
	case err == nil:
		stats.Inc(stats.FilesStable)
		log.Info("file is stable, submitting upload")
		if !d.submit(w.path) {
			log.Warn("upload was not accepted for a stable file")
			d.table.Release(w.path, pathstate.Polling)
		}

	case errors.Is(err, errDeleted):
		stats.Inc(stats.FilesDeleted)
		log.Debug("file was removed while being watched")
		d.table.Release(w.path, pathstate.Polling)

	case ctx.Err() != nil:
		d.table.Release(w.path, pathstate.Polling)

	default:
		stats.Inc(stats.FilesFailed)
		log.Errorx(errx.New(
			"cannot read the file after "+w.pollsString()+" tries",
			errx.WithCode(CodeFileUnreadable),
			errx.WithDetails(errx.D{
				"path":       w.path,
				"polls":      w.polls,
				"last_error": err.Error(),
			}),
		))
		d.table.Release(w.path, pathstate.Polling)
	}
}

func (d *Detector) poll(log logger.Logger, w *watchedPath) error {
	info, statErr := d.store.Stat(w.path)
	w.polls++

	outcome := Classify(w.mtime, info.LastModified, statErr)
	switch outcome {
	case NewFile:
		w.mtime = info.LastModified
		log.With("name", w.base, "extension", w.ext).Info("watching a new file")
		return errNotStable

	case StillWriting:
		w.mtime = info.LastModified
		log.With("size", info.Size).Debug("file is being written")
		return errNotStable

	case Stable:
		w.mtime = time.Time{}
		return nil

	case Deleted:
		return retry.Unrecoverable(errDeleted)

	default:
		log.With("error", statErr.Error(), "poll", w.polls).Warn("cannot stat file, will retry")
		return errNotStable
	}
}

func (w *watchedPath) pollsString() string {
	return strconv.FormatUint(uint64(w.polls), 10)
}
