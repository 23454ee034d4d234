// Package app wires the watch, scheduling and upload components into the
// running daemon.
package app

import (
	"context"

	"github.com/code19m/errx"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/rise-and-shine/dropsync/filestore"
	"github.com/rise-and-shine/dropsync/http/server"
	"github.com/rise-and-shine/dropsync/ingest"
	"github.com/rise-and-shine/dropsync/mediative"
	"github.com/rise-and-shine/dropsync/observability/logger"
	"github.com/rise-and-shine/dropsync/observability/stats"
	"github.com/rise-and-shine/dropsync/pathstate"
	"github.com/rise-and-shine/dropsync/scheduler"
	"github.com/rise-and-shine/dropsync/session"
	"github.com/rise-and-shine/dropsync/transfer"
	"github.com/rise-and-shine/dropsync/watch"
)

// App holds the wired components of the daemon.
type App struct {
	cfg       Config
	store     *filestore.Store
	table     *pathstate.Table
	session   *session.Manager
	scheduler *scheduler.Scheduler
	detector  *watch.Detector
	source    *watch.Source
	status    *server.HTTPServer
	logger    logger.Logger
}

// New wires the daemon for cfg against the vendor API described by api.
func New(cfg Config, api *mediative.Client) (*App, error) {
	store := filestore.NewOS()
	table := pathstate.New()

	sess := session.New(api, session.WithRenewBefore(cfg.Mediative.RenewBefore))
	engine := transfer.NewEngine(api, store, transfer.WithChunkSize(cfg.Upload.ChunkSize))
	pipeline := ingest.New(sess, engine, api, store)

	sched := scheduler.New(table, pipeline,
		scheduler.WithJobTimeout(cfg.Upload.JobTimeout),
		scheduler.WithQueueSize(cfg.Upload.QueueSize),
	)
	detector := watch.NewDetector(cfg.Watch.Source, store, table, sched.SubmitPath,
		watch.WithPollInterval(cfg.Watch.PollInterval),
		watch.WithPollAttempts(cfg.Watch.PollAttempts),
	)

	source, err := watch.NewSource(cfg.Watch.Source, store)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"source": cfg.Watch.Source}))
	}

	a := &App{
		cfg:       cfg,
		store:     store,
		table:     table,
		session:   sess,
		scheduler: sched,
		detector:  detector,
		source:    source,
		logger:    logger.Named("app"),
	}
	if !cfg.Server.Disable {
		a.status = server.NewHTTPServer(cfg.Server, a.Status)
	}
	return a, nil
}

// Run starts every component and blocks until ctx is done or one of them
// fails. In-flight uploads are abandoned, not drained.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.scheduler.Start(ctx)
	})
	g.Go(func() error {
		a.session.RunRenewer(ctx)
		return nil
	})
	g.Go(func() error {
		stats.Run(ctx, a.cfg.Stats.Interval)
		return nil
	})
	g.Go(func() error {
		return a.source.Run(ctx, func(ev watch.Event) {
			a.detector.Handle(ctx, ev)
		})
	})
	if a.status != nil {
		g.Go(func() error {
			// the pipeline keeps running without its status endpoint
			if err := a.status.Run(ctx); err != nil {
				a.logger.Warnx(err)
			}
			return nil
		})
	}

	a.logger.With("source", a.source.Root()).Info("[app]: watching for new files")

	if !a.cfg.Watch.SkipExisting {
		n, err := watch.TouchExisting(a.store, a.source.Root())
		if err != nil {
			a.logger.Warnx(err)
		}
		a.logger.With("files", n).Info("[app]: existing files touched")
	}

	err := g.Wait()
	a.detector.Wait()
	if err != nil {
		return errx.Wrap(err)
	}
	return nil
}

// Status reports the current pipeline state.
func (a *App) Status() server.Status {
	_, authenticated := a.session.Current()

	return server.Status{
		Authenticated: authenticated,
		Pending:       a.scheduler.Pending(),
		Paths: lo.MapValues(a.table.Snapshot(), func(p pathstate.Phase, _ string) string {
			return p.String()
		}),
		Stats: stats.Snapshot(),
	}
}
