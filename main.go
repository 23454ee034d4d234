// Command dropsync watches a drop directory and uploads every finished file
// to a Mediative tenant.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rise-and-shine/dropsync/app"
	"github.com/rise-and-shine/dropsync/cfgloader"
	"github.com/rise-and-shine/dropsync/mediative"
	"github.com/rise-and-shine/dropsync/meta"
	"github.com/rise-and-shine/dropsync/observability/logger"
	"github.com/rise-and-shine/dropsync/observability/tracing"
)

const serviceName = "dropsync"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // build-time value

func main() {
	meta.SetServiceInfo(serviceName, version)

	cfg := cfgloader.MustLoad[app.Config]()
	logger.SetGlobal(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracer, err := tracing.InitGlobalTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalx(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, mediative.New(cfg.Mediative))
	if err != nil {
		logger.Fatalx(err)
	}

	logger.With("version", version).Info("[main]: dropsync started")

	if err = a.Run(ctx); err != nil {
		logger.Errorx(err)
	}

	if err = shutdownTracer(); err != nil {
		logger.Warnx(err)
	}
	logger.Info("exiting process, bye")
}
