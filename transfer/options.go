package transfer

// Option is a functional option for customizing an Engine.
type Option func(*options)

type options struct {
	chunkSize int
}

func defaultOptions() options {
	return options{
		chunkSize: 1 << 20,
	}
}

// WithChunkSize sets the maximum chunk payload in bytes.
// Default: 1 MiB.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}
