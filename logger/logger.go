package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Field key constants shared across the module.
const (
	FieldComponent = "component"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldAttempt   = "attempt"
	FieldDuration  = "duration_ms"
	FieldRequestID = "request_id"
)

// Logger wraps zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger from configuration.
func New(cfg Config) *Logger {
	cfg.ApplyDefaults()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = outputWriter(cfg.Output)
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, NoColor: cfg.NoColor, TimeFormat: "15:04:05"}
	}

	zl := zerolog.New(out).Level(level)
	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	return &Logger{zl: zl}
}

// NewDefault creates a json logger at info level on stderr.
func NewDefault() *Logger {
	return New(Config{})
}

// Nop creates a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// FromZerolog wraps an existing zerolog.Logger.
func FromZerolog(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str(FieldComponent, name).Logger()}
}

// WithFields returns a logger with additional fields attached.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	zc := l.zl.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{zl: zc.Logger()}
}

// Unwrap returns the underlying zerolog.Logger.
func (l *Logger) Unwrap() zerolog.Logger {
	return l.zl
}

// Trace logs a trace message.
func (l *Logger) Trace(msg string, fields ...map[string]any) {
	emit(l.zl.Trace(), msg, fields...)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]any) {
	emit(l.zl.Debug(), msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]any) {
	emit(l.zl.Info(), msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]any) {
	emit(l.zl.Warn(), msg, fields...)
}

// Error logs an error message with an optional cause.
func (l *Logger) Error(msg string, err error, fields ...map[string]any) {
	emit(l.zl.Error().Err(err), msg, fields...)
}

func emit(event *zerolog.Event, msg string, fields ...map[string]any) {
	for _, fm := range fields {
		for k, v := range fm {
			event = event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

func outputWriter(output string) *os.File {
	if strings.EqualFold(output, "stdout") {
		return os.Stdout
	}
	return os.Stderr
}
