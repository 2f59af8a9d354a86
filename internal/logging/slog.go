package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// SlogAdapter implements Logger on top of log/slog.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// NewTintLogger returns a human-readable, colorized logger writing to w.
//
// Parameters:
//   - w: The destination writer.
//   - level: The minimum level ("debug", "info", "warn", "error").
//   - noColor: Disables ANSI colors.
//
// Returns:
//   - *SlogAdapter: The logger.
func NewTintLogger(w io.Writer, level string, noColor bool) *SlogAdapter {
	h := tint.NewHandler(w, &tint.Options{
		Level:      slogLevel(level),
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
	return NewSlogAdapter(slog.New(h))
}

// Info implements Logger.
func (s *SlogAdapter) Info(msg string, fields ...Field) {
	s.logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs(fields)...)
}

// Error implements Logger.
func (s *SlogAdapter) Error(msg string, err error, fields ...Field) {
	a := append([]slog.Attr{tint.Err(err)}, attrs(fields)...)
	s.logger.LogAttrs(context.Background(), slog.LevelError, msg, a...)
}

// Debug implements Logger.
func (s *SlogAdapter) Debug(msg string, fields ...Field) {
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs(fields)...)
}

// Printf implements Logger.
func (s *SlogAdapter) Printf(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

// Println implements Logger.
func (s *SlogAdapter) Println(args ...any) {
	s.logger.Info(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func attrs(fields []Field) []slog.Attr {
	out := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

func slogLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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
