package logging

import (
	"io"
	"log"

	"github.com/rs/zerolog"
)

// New builds the logger selected by the --log-format and --log-level flags.
// "text" selects the tinted slog backend, "plain" the standard library
// logger, and anything else zerolog JSON.
func New(w io.Writer, format, level, component string, noColor bool) Logger {
	switch format {
	case "text":
		return NewTintLogger(w, level, noColor)
	case "plain":
		std := NewStdLoggerAdapter(log.New(w, component+" ", log.LstdFlags))
		std.debug = ParseLevel(level) <= zerolog.DebugLevel
		return std
	}
	l := NewLogger(w, component)
	l.logger = l.logger.Level(ParseLevel(level))
	return l
}
