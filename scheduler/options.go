package scheduler

import "time"

// Option is a functional option for customizing a Scheduler.
type Option func(*options)

type options struct {
	jobTimeout time.Duration
	queueSize  int
}

func defaultOptions() options {
	return options{
		jobTimeout: time.Hour,
		queueSize:  0,
	}
}

// WithJobTimeout sets how long the scheduler waits for one job before moving on.
// Default: 1h.
func WithJobTimeout(d time.Duration) Option {
	return func(o *options) {
		o.jobTimeout = d
	}
}

// WithQueueSize bounds the number of queued jobs. Zero means unbounded.
// Default: 0.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}
