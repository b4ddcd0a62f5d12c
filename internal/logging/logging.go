// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
	"time"
)

// TimeLayout matches the timestamp format used on the console.
const TimeLayout = "2006/01/02 15:04:05.000"

// New returns a text logger writing to w. Debug enables debug-level records.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				return slog.String(slog.TimeKey, a.Value.Time().Format(TimeLayout))
			}
			if a.Value.Kind() == slog.KindDuration {
				return slog.String(a.Key, a.Value.Duration().Round(time.Microsecond).String())
			}
			return a
		},
	})
	return slog.New(h)
}
