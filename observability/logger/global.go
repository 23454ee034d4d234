package logger

import (
	"context"
	"sync"
	"sync/atomic"
)

//nolint:gochecknoglobals // process-wide logger singleton
var (
	global   atomic.Value
	setOnce  sync.Once
	initOnce sync.Once
)

// SetGlobal configures the process-wide logger. It must be called at most
// once, before the first log line; a second call panics.
func SetGlobal(cfg Config) {
	called := false
	setOnce.Do(func() {
		initOnce.Do(func() {})

		l, err := New(cfg)
		if err != nil {
			panic("[logger]: failed to initialize global logger: " + err.Error())
		}
		global.Store(l)
		called = true
	})
	if !called {
		panic("[logger]: SetGlobal can only be called once")
	}
}

// Debug logs at debug level using the global logger.
func Debug(msg any) { getGlobal().Debug(msg) }

// Info logs at info level using the global logger.
func Info(msg any) { getGlobal().Info(msg) }

// Warn logs at warn level using the global logger.
func Warn(msg any) { getGlobal().Warn(msg) }

// Error logs at error level using the global logger.
func Error(msg any) { getGlobal().Error(msg) }

// Fatal logs at fatal level using the global logger and exits.
func Fatal(msg any) { getGlobal().Fatal(msg) }

// Infof logs a formatted message at info level using the global logger.
func Infof(format string, args ...any) { getGlobal().Infof(format, args...) }

// Warnf logs a formatted message at warn level using the global logger.
func Warnf(format string, args ...any) { getGlobal().Warnf(format, args...) }

// Errorf logs a formatted message at error level using the global logger.
func Errorf(format string, args ...any) { getGlobal().Errorf(format, args...) }

// Warnx logs an errx error with its code and details at warn level.
func Warnx(err error) { getGlobal().Warnx(err) }

// Errorx logs an errx error with its code and details at error level.
func Errorx(err error) { getGlobal().Errorx(err) }

// Fatalx logs an errx error at fatal level and exits.
func Fatalx(err error) { getGlobal().Fatalx(err) }

// With returns the global logger extended with key-value pairs.
func With(keysAndValues ...any) Logger { return getGlobal().With(keysAndValues...) }

// WithContext returns the global logger enriched with meta values from ctx.
func WithContext(ctx context.Context) Logger { return getGlobal().WithContext(ctx) }

// Named returns a sub-scoped global logger, e.g. Named("watch.detector").
func Named(name string) Logger { return getGlobal().Named(name) }

// Sync flushes the global logger.
func Sync() error { return getGlobal().Sync() }

func getGlobal() Logger {
	if l, ok := global.Load().(Logger); ok {
		return l
	}

	initOnce.Do(func() {
		l, err := New(Config{Level: levelDebug, Encoding: encPretty})
		if err != nil {
			panic("[logger]: failed to initialize default logger: " + err.Error())
		}
		global.Store(l)
	})

	l, ok := global.Load().(Logger)
	if !ok {
		panic("[logger]: global contains invalid type")
	}
	return l
}
