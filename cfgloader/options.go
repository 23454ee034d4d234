package cfgloader

// Options holds configuration options for Load.
type Options struct {
	// Silent disables logging of the loaded config.
	Silent bool
	// Path overrides the config file location.
	Path string
}

// Option configures Load.
type Option func(*Options)

// WithSilent disables logging of the loaded config.
func WithSilent() Option {
	return func(o *Options) {
		o.Silent = true
	}
}

// WithPath reads the config from path instead of ./config/${ENVIRONMENT}.yaml.
func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}
