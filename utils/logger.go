package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Logger provides structured, leveled logging throughout the application.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// LoggerOptions configures NewLoggerWithOptions.
type LoggerOptions struct {
	Level string
	// FilePath, if set, receives a JSON copy of every log line.
	FilePath string
}

// NewLoggerWithOptions creates a Logger writing human readable lines to stdout
// and, optionally, JSON lines to a log file.
func NewLoggerWithOptions(opts LoggerOptions) (*Logger, error) {
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}

	var (
		out  io.Writer = console
		file *os.File
	)
	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return newLogger(console, zerolog.InfoLevel, nil), fmt.Errorf("logger: open %q: %w", opts.FilePath, err)
		}
		file = f
		out = zerolog.MultiLevelWriter(console, f)
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return newLogger(out, level, file), fmt.Errorf("logger: level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	return newLogger(out, level, file), nil
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func newLogger(w io.Writer, level zerolog.Level, file *os.File) *Logger {
	return &Logger{
		zl:   zerolog.New(w).Level(level).With().Timestamp().Logger(),
		file: file,
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// CronLogger adapts the Logger to the cron scheduler's logging interface.
func (l *Logger) CronLogger() cron.Logger {
	return cronLogger{zl: l.zl}
}

type cronLogger struct {
	zl zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.zl.Debug().Fields(keysAndValues).Msg("[cron] " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.zl.Error().Err(err).Fields(keysAndValues).Msg("[cron] " + msg)
}
