// Package ingest turns a stable file into a registered media record.
//
// A job runs four stages in order: authenticate, transfer, register and
// cleanup. A stage runs only when the previous one succeeded, so a file is
// registered only after every chunk was accepted and is removed only after
// registration.
package ingest

import (
	"context"

	"github.com/code19m/errx"
	"go.opentelemetry.io/otel/codes"

	"github.com/rise-and-shine/dropsync/mediative"
	"github.com/rise-and-shine/dropsync/observability/logger"
	"github.com/rise-and-shine/dropsync/observability/stats"
	"github.com/rise-and-shine/dropsync/observability/tracing"
	"github.com/rise-and-shine/dropsync/scheduler"
	"github.com/rise-and-shine/dropsync/session"
	"github.com/rise-and-shine/dropsync/transfer"
)

// Authenticator yields a usable session token.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context) (session.Token, error)
}

// Uploader streams a local file to the vendor.
type Uploader interface {
	Upload(ctx context.Context, token, path string) (transfer.Result, error)
}

// Registrar creates media records.
type Registrar interface {
	CreateMedia(ctx context.Context, token string, m mediative.Media) (map[string]any, error)
}

// Remover deletes local files.
type Remover interface {
	Remove(path string) error
}

// Pipeline is a scheduler.Handler that uploads and registers one file per job.
type Pipeline struct {
	auth     Authenticator
	uploader Uploader
	registry Registrar
	files    Remover
	logger   logger.Logger
}

var _ scheduler.Handler = (*Pipeline)(nil)

// New creates a Pipeline.
func New(auth Authenticator, uploader Uploader, registry Registrar, files Remover) *Pipeline {
	return &Pipeline{
		auth:     auth,
		uploader: uploader,
		registry: registry,
		files:    files,
		logger:   logger.Named("ingest"),
	}
}

// Handle runs the stages for job.
func (p *Pipeline) Handle(ctx context.Context, job scheduler.Job) error {
	token, err := p.authenticate(ctx)
	if err != nil {
		return errx.Wrap(err)
	}

	res, err := p.transfer(ctx, token, job)
	if err != nil {
		return errx.Wrap(err)
	}

	if res.Final.Upload == nil {
		return errx.New("[ingest]: nothing to register, file kept",
			errx.WithCode(CodeNothingUploaded),
			errx.WithDetails(errx.D{
				"path":   job.Path,
				"chunks": res.Chunks,
				"bytes":  res.Bytes,
			}),
		)
	}

	if err = p.register(ctx, token, job, res); err != nil {
		return errx.Wrap(err)
	}

	p.cleanup(ctx, job)
	return nil
}

func (p *Pipeline) authenticate(ctx context.Context) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.authenticate")
	defer span.End()

	t, err := p.auth.EnsureAuthenticated(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return t.Token, nil
}

func (p *Pipeline) transfer(ctx context.Context, token string, job scheduler.Job) (transfer.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.transfer")
	defer span.End()

	res, err := p.uploader.Upload(ctx, token, job.Path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	return res, nil
}

func (p *Pipeline) register(ctx context.Context, token string, job scheduler.Job, res transfer.Result) error {
	ctx, span := tracing.StartSpan(ctx, "ingest.register")
	defer span.End()

	m := mediative.Media{
		Filename: res.Final.Filename,
		UploadID: res.Final.Upload.ID,
		Title:    res.Final.Upload.Title,
	}

	body, err := p.registry.CreateMedia(ctx, token, m)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		details := errx.D{
			"path":   job.Path,
			"fields": mediative.MediaFields(m),
			"cause":  err.Error(),
		}
		if ex := errx.AsErrorX(err); ex != nil {
			for k, v := range ex.Details() {
				details[k] = v
			}
		}
		return errx.New("[ingest]: cannot register media, file kept",
			errx.WithCode(CodeRegisterFailed),
			errx.WithDetails(details),
		)
	}

	stats.Inc(stats.MediaRegistered)
	p.logger.WithContext(ctx).
		With("upload_id", m.UploadID, "title", m.Title, "response", body).
		Info("[ingest]: media registered")
	return nil
}

func (p *Pipeline) cleanup(ctx context.Context, job scheduler.Job) {
	ctx, span := tracing.StartSpan(ctx, "ingest.cleanup")
	defer span.End()

	log := p.logger.WithContext(ctx)
	if err := p.files.Remove(job.Path); err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Warnx(errx.Wrap(err, errx.WithDetails(errx.D{"path": job.Path})))
		return
	}

	stats.Inc(stats.FilesRemoved)
	log.With("path", job.Path).Info("[ingest]: local file removed")
}
