package session

import "time"

// Option is a functional option for customizing a Manager.
type Option func(*options)

type options struct {
	renewBefore time.Duration
	now         func() time.Time
	minRenew    time.Duration
}

func defaultOptions() options {
	return options{
		renewBefore: 5 * time.Minute,
		now:         time.Now,
		minRenew:    30 * time.Second,
	}
}

// WithRenewBefore sets how long before expiry the renewer refreshes the token.
// Default: 5m.
func WithRenewBefore(d time.Duration) Option {
	return func(o *options) {
		o.renewBefore = d
	}
}

// WithClock replaces time.Now for validity checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMinRenewInterval sets the shortest wait before a renewal that is
// already due, so tokens living less than the renew window are not
// refreshed back to back.
// Default: 30s.
func WithMinRenewInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.minRenew = d
		}
	}
}
