// Package stats keeps in-process counters and timers for the ingestion
// pipeline and periodically writes them to the log.
package stats

import (
	"context"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/rise-and-shine/dropsync/observability/logger"
)

// Metric names recorded by the pipeline.
const (
	FilesTracked    = "watch.tracked"
	FilesStable     = "watch.stable"
	FilesDeleted    = "watch.deleted"
	FilesFailed     = "watch.failed"
	JobsSubmitted   = "scheduler.submitted"
	JobsRejected    = "scheduler.rejected"
	JobsDuplicate   = "scheduler.duplicate"
	JobsSucceeded   = "scheduler.succeeded"
	JobsFailed      = "scheduler.failed"
	JobsTimedOut    = "scheduler.timed_out"
	QueueDepth      = "scheduler.queue_depth"
	JobDuration     = "scheduler.job_duration"
	ChunksSent      = "transfer.chunks"
	BytesSent       = "transfer.bytes"
	Logins          = "session.logins"
	LoginFailures   = "session.login_failures"
	Renewals        = "session.renewals"
	FilesRemoved    = "ingest.removed"
	MediaRegistered = "ingest.registered"
)

//nolint:gochecknoglobals // process-wide registry, like metrics.DefaultRegistry
var registry = metrics.NewRegistry()

// Inc adds one to the counter name.
func Inc(name string) {
	Add(name, 1)
}

// Add adds n to the counter name.
func Add(name string, n int64) {
	metrics.GetOrRegisterCounter(name, registry).Inc(n)
}

// Count returns the current value of the counter name.
func Count(name string) int64 {
	return metrics.GetOrRegisterCounter(name, registry).Count()
}

// SetGauge sets the gauge name to v.
func SetGauge(name string, v int64) {
	metrics.GetOrRegisterGauge(name, registry).Update(v)
}

// Gauge returns the current value of the gauge name.
func Gauge(name string) int64 {
	return metrics.GetOrRegisterGauge(name, registry).Value()
}

// Since records the time elapsed since start in the timer name.
func Since(name string, start time.Time) {
	metrics.GetOrRegisterTimer(name, registry).UpdateSince(start)
}

// Snapshot returns every registered metric with its current values.
func Snapshot() map[string]map[string]any {
	return registry.GetAll()
}

// Run logs a snapshot every interval until ctx is done. A non-positive
// interval disables reporting and returns immediately.
func Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	log := logger.Named("stats")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.With("metrics", Snapshot()).Info("pipeline stats")
		}
	}
}
