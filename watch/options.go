package watch

import "time"

// Option is a functional option for customizing a Detector.
type Option func(*options)

type options struct {
	pollInterval time.Duration
	pollAttempts uint
}

func defaultOptions() options {
	return options{
		pollInterval: 36 * time.Second,
		pollAttempts: 100,
	}
}

// WithPollInterval sets the delay between two polls of the same file.
// Default: 36s.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithPollAttempts sets the total number of polls before a file is given up on.
// Values below 1 are treated as 1.
// Default: 100.
func WithPollAttempts(n int) Option {
	return func(o *options) {
		o.pollAttempts = uint(max(n, 1)) //nolint:gosec // clamped to positive
	}
}
