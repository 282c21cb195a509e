package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger that knows the hms record fields.
type Logger struct {
	zlog zerolog.Logger
}

type loggerContextKey struct{}

// NewLogger creates a logger writing to cfg.Output: "stdout", "stderr" or a
// file path opened for append.
func NewLogger(cfg LoggingConfig) (*Logger, error) {
	w, err := openLogOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return NewLoggerWithWriter(cfg, w), nil
}

// NewLoggerWithWriter creates a logger that writes to w.
func NewLoggerWithWriter(cfg LoggingConfig, w io.Writer) *Logger {
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat(cfg.TimeFormat)}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zctx := zerolog.New(w).Level(level).Hook(timestampHook(cfg.TimeFormat)).With()
	if cfg.EnableCaller {
		zctx = zctx.Caller()
	}
	return &Logger{zlog: zctx.Logger()}
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// NewComponentLogger returns a child logger tagged with component.
func (l *Logger) NewComponentLogger(component string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str("component", component) })
}

// WithContext stores l in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext returns the logger stored in ctx, or a logger that discards
// output.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	return NopLogger()
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

// WithField returns a logger with one additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

func (l *Logger) WithPatientID(id int64) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Int64("patient_id", id) })
}

func (l *Logger) WithAppointmentID(id int64) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Int64("appointment_id", id) })
}

func (l *Logger) WithStaffID(id int64) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Int64("staff_id", id) })
}

func (l *Logger) WithReceiptNumber(number string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str("receipt_number", number) })
}

func (l *Logger) WithError(err error) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Err(err) })
}

// Zerolog exposes the underlying zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

func (l *Logger) with(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zlog: fn(l.zlog.With()).Logger()}
}

func openLogOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// timestampHook stamps each event in the configured format without touching
// zerolog's package-level TimeFieldFormat.
func timestampHook(format string) zerolog.HookFunc {
	return func(e *zerolog.Event, _ zerolog.Level, _ string) {
		now := time.Now()
		switch format {
		case "unix":
			e.Int64(zerolog.TimestampFieldName, now.Unix())
		case "unixms":
			e.Int64(zerolog.TimestampFieldName, now.UnixMilli())
		default:
			e.Str(zerolog.TimestampFieldName, now.Format(time.RFC3339))
		}
	}
}

func consoleTimeFormat(format string) string {
	if format == "unix" || format == "unixms" {
		return time.Kitchen
	}
	return time.RFC3339
}
