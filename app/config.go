package app

import (
	"time"

	"github.com/rise-and-shine/dropsync/http/server"
	"github.com/rise-and-shine/dropsync/mediative"
	"github.com/rise-and-shine/dropsync/observability/logger"
	"github.com/rise-and-shine/dropsync/observability/tracing"
)

// Config is the daemon configuration, loaded with cfgloader.
type Config struct {
	Watch     WatchConfig      `yaml:"watch"`
	Upload    UploadConfig     `yaml:"upload"`
	Mediative mediative.Config `yaml:"mediative"`
	Logger    logger.Config    `yaml:"logger"`
	Tracing   tracing.Config   `yaml:"tracing"`
	Stats     StatsConfig      `yaml:"stats"`
	Server    server.Config    `yaml:"server"`
}

// WatchConfig controls the drop directory watch.
type WatchConfig struct {
	// Source is the directory to watch, recursively.
	Source string `yaml:"source" validate:"required,dir"`

	// PollInterval is the wait between two mtime checks of a file.
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0" default:"36s"`

	// PollAttempts is the number of mtime checks before giving up on a file.
	PollAttempts int `yaml:"poll_attempts" validate:"gt=0" default:"100"`

	// SkipExisting leaves files already present at startup alone. By default
	// their mtime is bumped so they are picked up.
	SkipExisting bool `yaml:"skip_existing"`
}

// UploadConfig controls the scheduler and the transfer engine.
type UploadConfig struct {
	ChunkSize  int           `yaml:"chunk_size"  validate:"gt=0"   default:"1048576"`
	JobTimeout time.Duration `yaml:"job_timeout" validate:"gt=0"   default:"1h"`
	QueueSize  int           `yaml:"queue_size"  validate:"gte=0"`
}

// StatsConfig controls periodic metric dumps. Zero interval disables them.
type StatsConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
}
