package logger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rise-and-shine/dropsync/meta"
	"github.com/rise-and-shine/dropsync/observability/logger"
)

func newObserved() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     logger.Config
		wantErr bool
	}{
		{"json", logger.Config{Level: "info", Encoding: "json"}, false},
		{"pretty", logger.Config{Level: "debug", Encoding: "pretty"}, false},
		{"disabled ignores level", logger.Config{Level: "bogus", Disable: true}, false},
		{"bad level", logger.Config{Level: "bogus", Encoding: "json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := logger.New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestLogger_ErrorxExpandsErrxFields(t *testing.T) {
	l, logs := newObserved()

	err := errx.New("chunk rejected",
		errx.WithCode("CHUNK_FAILED"),
		errx.WithDetails(errx.D{"range": "bytes 0-10/10"}),
	)
	l.Errorx(err)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "CHUNK_FAILED", entry.ContextMap()["error_code"])
	assert.Contains(t, entry.ContextMap(), "error_details")
}

func TestLogger_WarnxPlainError(t *testing.T) {
	l, logs := newObserved()

	l.Warnx(errors.New("plain"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "plain", entry.Message)
	assert.NotContains(t, entry.ContextMap(), "error_code")
}

func TestLogger_WithContextAttachesMeta(t *testing.T) {
	l, logs := newObserved()

	ctx := meta.InjectMetaToContext(context.Background(), map[meta.ContextKey]string{
		meta.JobID:    "job-1",
		meta.FilePath: "/drop/a.mp4",
	})
	l.WithContext(ctx).Info("uploading")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "job-1", fields["job_id"])
	assert.Equal(t, "/drop/a.mp4", fields["file_path"])
}

func TestLogger_Named(t *testing.T) {
	l, logs := newObserved()

	l.Named("watch").Named("detector").Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "watch.detector", logs.All()[0].LoggerName)
}

func TestPrettyEncoding(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "debug", Encoding: "pretty"})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		l.Named("test").With("nested", map[string]any{"a": 1}, "took", time.Second).Info("pretty")
		l.Warnx(errx.New("boom", errx.WithCode("X")))
	})
}

func TestLogger_LevelMethods(t *testing.T) {
	l, logs := newObserved()

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error(errors.New("e"))

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "d", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "e", entries[3].Message)
}
