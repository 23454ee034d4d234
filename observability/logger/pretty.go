package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // static palette shared by every encoder clone
var (
	levelColors = map[zapcore.Level]*color.Color{
		zapcore.DebugLevel:  color.New(color.FgCyan),
		zapcore.InfoLevel:   color.New(color.FgGreen),
		zapcore.WarnLevel:   color.New(color.FgYellow),
		zapcore.ErrorLevel:  color.New(color.FgRed, color.Bold),
		zapcore.DPanicLevel: color.New(color.FgRed, color.Bold),
		zapcore.PanicLevel:  color.New(color.FgRed, color.Bold),
		zapcore.FatalLevel:  color.New(color.FgMagenta, color.Bold),
	}
	timeColor  = color.New(color.Faint)
	nameColor  = color.New(color.FgBlue)
	fieldColor = color.New(color.FgHiBlack)
)

// prettyEncoder renders an entry as a colored header line followed by its
// fields as indented JSON. It delegates field encoding to a JSON encoder and
// reformats the result.
type prettyEncoder struct {
	zapcore.Encoder
	pool buffer.Pool
}

func newPrettyEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &prettyEncoder{
		Encoder: zapcore.NewJSONEncoder(cfg),
		pool:    buffer.NewPool(),
	}
}

// Clone keeps child loggers (With, Named) on the pretty encoder.
func (e *prettyEncoder) Clone() zapcore.Encoder {
	return &prettyEncoder{Encoder: e.Encoder.Clone(), pool: e.pool}
}

func (e *prettyEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	raw, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}
	defer raw.Free()

	out := e.pool.Get()
	out.AppendString(header(entry))

	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw.Bytes()))
	dec.UseNumber()
	if err = dec.Decode(&payload); err != nil {
		out.AppendString(" ")
		out.AppendString(strings.TrimSpace(raw.String()))
		out.AppendByte('\n')
		return out, nil //nolint:nilerr // fall back to raw JSON
	}

	for _, k := range []string{timeKey, levelKey, messageKey, nameKey} {
		delete(payload, k)
	}
	out.AppendByte('\n')

	if len(payload) > 0 {
		body, mErr := json.MarshalIndent(payload, "  ", "  ")
		if mErr != nil {
			return nil, mErr
		}
		out.AppendString("  ")
		out.AppendString(fieldColor.Sprint(string(body)))
		out.AppendByte('\n')
	}
	return out, nil
}

func header(entry zapcore.Entry) string {
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	lvl := entry.Level.CapitalString()
	if c, ok := levelColors[entry.Level]; ok {
		lvl = c.Sprint(lvl)
	}

	var b strings.Builder
	b.WriteString(timeColor.Sprint(ts.Format(time.DateTime)))
	b.WriteByte(' ')
	b.WriteString(lvl)
	if entry.LoggerName != "" {
		b.WriteByte(' ')
		b.WriteString(nameColor.Sprint("[" + entry.LoggerName + "]"))
	}
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	return b.String()
}
