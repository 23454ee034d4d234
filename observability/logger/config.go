package logger

import (
	"github.com/code19m/errx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	messageKey = "msg"
	levelKey   = "level"
	nameKey    = "logger"
	timeKey    = "time"

	encJSON    = "json"
	encPretty  = "pretty"
	levelDebug = "debug"
)

// Config defines configuration options for the logger.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	Level string `yaml:"level" validate:"oneof=debug info warn error" default:"info"`

	// Encoding selects the output format.
	//
	// "json" writes one compact JSON object per line, which is what the
	// daemon should use when its output is shipped to a log collector.
	// "pretty" writes a colored header line followed by indented fields and
	// is meant for an operator watching the terminal.
	Encoding string `yaml:"encoding" validate:"oneof=json pretty" default:"json"`

	// Disable turns every call into a no-op.
	Disable bool `yaml:"disable" default:"false"`
}

func (c Config) encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     messageKey,
		LevelKey:       levelKey,
		NameKey:        nameKey,
		TimeKey:        timeKey,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

func (c Config) zapConfig() (zap.Config, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return zap.Config{}, errx.Wrap(err)
	}

	return zap.Config{
		Level:            level,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		Encoding:         encJSON,
		EncoderConfig:    c.encoderConfig(),
	}, nil
}
