// Package scheduler runs upload jobs one at a time, in submission order, and
// guarantees a path never has two attempts in flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/code19m/errx"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rise-and-shine/dropsync/meta"
	"github.com/rise-and-shine/dropsync/observability/logger"
	"github.com/rise-and-shine/dropsync/observability/stats"
	"github.com/rise-and-shine/dropsync/observability/tracing"
	"github.com/rise-and-shine/dropsync/pathstate"
)

const shutdownTimeout = 10 * time.Second

// Scheduler is a single-worker FIFO queue of upload jobs.
type Scheduler struct {
	table   *pathstate.Table
	handler Handler

	jobTimeout time.Duration
	queueSize  int

	mu     sync.Mutex
	queue  []Job
	notify chan struct{}

	started   chan struct{}
	startOnce sync.Once
	stopCh    chan struct{}
	stopOnce  sync.Once
	stoppedCh chan struct{}

	logger logger.Logger
}

// New creates a Scheduler that records in-progress paths in table and runs
// jobs with handler.
func New(table *pathstate.Table, handler Handler, opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Scheduler{
		table:      table,
		handler:    handler,
		jobTimeout: o.jobTimeout,
		queueSize:  o.queueSize,
		notify:     make(chan struct{}, 1),
		started:    make(chan struct{}),
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
		logger:     logger.Named("scheduler"),
	}
}

// Submit enqueues job. It is a no-op returning false when the job's path is
// already queued or running, or when the queue is full.
func (s *Scheduler) Submit(job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.InProgress(job.Path) {
		s.rejectDuplicate(job)
		return false
	}

	if s.queueSize > 0 && len(s.queue) >= s.queueSize {
		stats.Inc(stats.JobsRejected)
		s.logger.Warnx(errx.New("[scheduler]: queue is full",
			errx.WithCode(CodeJobRejected),
			errx.WithDetails(errx.D{"path": job.Path, "queue_size": s.queueSize}),
		))
		return false
	}

	if !s.table.Enqueue(job.Path) {
		s.rejectDuplicate(job)
		return false
	}

	s.queue = append(s.queue, job)
	stats.Inc(stats.JobsSubmitted)
	stats.SetGauge(stats.QueueDepth, int64(len(s.queue)))

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

func (s *Scheduler) rejectDuplicate(job Job) {
	stats.Inc(stats.JobsDuplicate)
	s.logger.With("path", job.Path).Debug("[scheduler]: path already in progress")
}

// SubmitPath is Submit(NewJob(path)).
func (s *Scheduler) SubmitPath(path string) bool {
	return s.Submit(NewJob(path))
}

// Pending returns the number of jobs waiting to run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue)
}

// InProgress reports whether path is queued or running.
func (s *Scheduler) InProgress(path string) bool {
	switch s.table.Phase(path) {
	case pathstate.Queued, pathstate.Running:
		return true
	default:
		return false
	}
}

// Start runs the worker loop until ctx is done or Stop is called.
// Queued jobs are not drained on exit.
func (s *Scheduler) Start(ctx context.Context) error {
	s.startOnce.Do(func() { close(s.started) })
	defer close(s.stoppedCh)

	chain := s.buildProcessChain()
	for {
		job, ok := s.next(ctx)
		if !ok {
			return nil
		}
		// errors are logged inside the chain
		_ = chain(ctx, job)
	}
}

// Stop ends the worker loop after the current job returns or is abandoned.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.started:
	default:
		return nil
	}

	select {
	case <-s.stoppedCh:
		return nil
	case <-time.After(shutdownTimeout):
		return errx.New("[scheduler]: shutdown timeout exceeded")
	}
}

func (s *Scheduler) next(ctx context.Context) (Job, bool) {
	for {
		select {
		case <-ctx.Done():
			return Job{}, false
		case <-s.stopCh:
			return Job{}, false
		default:
		}

		s.mu.Lock()
		if len(s.queue) > 0 {
			job := s.queue[0]
			s.queue = s.queue[1:]
			stats.SetGauge(stats.QueueDepth, int64(len(s.queue)))
			s.mu.Unlock()

			if !s.table.Start(job.Path) {
				s.logger.With("job", job).Warn("[scheduler]: dequeued job is not marked queued, skipping")
				continue
			}
			return job, true
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Job{}, false
		case <-s.stopCh:
			return Job{}, false
		case <-s.notify:
		}
	}
}

type handleFunc func(context.Context, Job) error

func (s *Scheduler) buildProcessChain() handleFunc {
	p := s.processJob

	// build the chain in reverse order (last wrapper executes first)
	p = s.processWithStats(p)         // 6. stats
	p = s.processWithLogging(p)       // 5. logging
	p = s.processWithTimeout(p)       // 4. timeout
	p = s.processWithMetaInjection(p) // 3. meta injection
	p = s.processWithTracing(p)       // 2. tracing
	p = s.processWithRecovery(p)      // 1. recovery (outermost)

	return p
}

// processJob runs the handler and clears the in-progress mark once the
// handler has actually returned, even if the timeout layer gave up earlier.
func (s *Scheduler) processJob(ctx context.Context, job Job) error {
	defer s.table.Release(job.Path, pathstate.Running)
	return executeWithRecovery(ctx, s.handler, job)
}

func (s *Scheduler) processWithStats(next handleFunc) handleFunc {
	return func(ctx context.Context, job Job) error {
		start := time.Now()
		err := next(ctx, job)

		stats.Since(stats.JobDuration, start)
		if err != nil {
			stats.Inc(stats.JobsFailed)
		} else {
			stats.Inc(stats.JobsSucceeded)
		}
		return err
	}
}

func (s *Scheduler) processWithLogging(next handleFunc) handleFunc {
	return func(ctx context.Context, job Job) error {
		start := time.Now()
		err := next(ctx, job)

		log := s.logger.Named("access_logger").WithContext(ctx).With(
			"job", job,
			"duration", time.Since(start).Round(time.Microsecond),
		)
		if err != nil {
			log.Errorx(err)
		} else {
			log.Info("[scheduler]: job processed successfully")
		}
		return err
	}
}

// processWithTimeout stops waiting for the job after jobTimeout. The handler
// keeps running in its goroutine with a cancelled context.
func (s *Scheduler) processWithTimeout(next handleFunc) handleFunc {
	return func(ctx context.Context, job Job) error {
		ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)

		done := make(chan error, 1)
		go func() {
			defer cancel()
			done <- next(ctx, job)
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
		}

		select {
		case err := <-done:
			return err
		default:
		}

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errx.Wrap(ctx.Err())
		}

		stats.Inc(stats.JobsTimedOut)
		err := errx.New("[scheduler]: job timed out, moving on",
			errx.WithCode(CodeJobTimeout),
			errx.WithDetails(errx.D{
				"path":    job.Path,
				"timeout": s.jobTimeout.String(),
			}),
		)
		s.logger.WithContext(ctx).Warnx(err)
		return err
	}
}

func (s *Scheduler) processWithMetaInjection(next handleFunc) handleFunc {
	return func(ctx context.Context, job Job) error {
		ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{
			meta.TraceID:        tracing.GetStartingTraceID(ctx),
			meta.JobID:          job.ID,
			meta.FilePath:       job.Path,
			meta.ServiceName:    meta.GetServiceName(),
			meta.ServiceVersion: meta.GetServiceVersion(),
		})
		return next(ctx, job)
	}
}

func (s *Scheduler) processWithTracing(next handleFunc) handleFunc {
	return func(ctx context.Context, job Job) error {
		ctx, span := tracing.Tracer().Start(ctx, "UPLOAD "+job.Base,
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		err := next(ctx, job)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

func (s *Scheduler) processWithRecovery(next handleFunc) handleFunc {
	return func(ctx context.Context, job Job) (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.With("recover", r, "job", job).Error("[scheduler]: panicked at recovery wrapper")
				err = errx.New("[scheduler]: panicked at recovery wrapper",
					errx.WithCode(CodeJobPanicked),
					errx.WithDetails(errx.D{"panic": fmt.Sprintf("%v", r)}),
				)
			}
		}()
		return next(ctx, job)
	}
}

func executeWithRecovery(ctx context.Context, h Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]

			err = errx.New("[scheduler]: panicked at job execution",
				errx.WithCode(CodeJobPanicked),
				errx.WithDetails(errx.D{
					"stack_trace":   string(stack),
					"panic_message": fmt.Sprintf("%v", r),
				}),
			)
		}
	}()
	return h.Handle(ctx, job)
}
