// Package logging adapts zerolog to the core.Logger interface.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger writes structured entries through zerolog. Key/value pairs passed
// to the level methods become event fields.
type Logger struct {
	zl zerolog.Logger
}

// New builds a logger writing to w (stderr when nil) at level. The console
// format renders human-readable lines; anything else is JSON.
func New(w io.Writer, level, format string) (*Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "linkbox").Logger()
	return &Logger{zl: zl}, nil
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

func (l *Logger) Debug(msg string, kv ...any) { emit(l.zl.Debug(), msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { emit(l.zl.Info(), msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { emit(l.zl.Warn(), msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { emit(l.zl.Error(), msg, kv) }

func emit(ev *zerolog.Event, msg string, kv []any) {
	if ev == nil {
		return
	}
	if len(kv)%2 == 1 {
		kv = append(kv, "(missing)")
	}
	ev.Fields(kv).Msg(msg)
}
