package logger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Logger carries the package, file and function a log line came from.
type Logger struct {
	name     string
	file     string
	function string
}

func New(name string) Logger {
	return Logger{name: name}
}

// Setup replaces the process default slog logger. Production gets JSON,
// everything else gets the text handler.
func Setup(environment, level string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l Logger) File(file string) Logger {
	l.file = file
	return l
}

func (l Logger) Function(function string) Logger {
	l.function = function
	return l
}

func (l Logger) Debug(msg string, args ...any) {
	l.slog().Debug(msg, args...)
}

func (l Logger) Info(msg string, args ...any) {
	l.slog().Info(msg, args...)
}

func (l Logger) Warn(msg string, args ...any) {
	l.slog().Warn(msg, args...)
}

// Er logs err without returning it.
func (l Logger) Er(msg string, err error, args ...any) {
	l.slog().Error(msg, append([]any{"error", err}, args...)...)
}

// ErMsg logs an error level message without an underlying error.
func (l Logger) ErMsg(msg string, args ...any) {
	l.slog().Error(msg, args...)
}

// Err logs err and returns it wrapped with msg.
func (l Logger) Err(msg string, err error, args ...any) error {
	l.Er(msg, err, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// Error logs msg and returns it as a new error.
func (l Logger) Error(msg string, args ...any) error {
	l.ErMsg(msg, args...)
	return errors.New(msg)
}

func (l Logger) ErrMsg(msg string) error {
	return l.Error(msg)
}

func (l Logger) slog() *slog.Logger {
	log := slog.Default()
	if l.name != "" {
		log = log.With("package", l.name)
	}
	if l.file != "" {
		log = log.With("file", l.file)
	}
	if l.function != "" {
		log = log.With("function", l.function)
	}
	return log
}
