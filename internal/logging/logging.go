// Package logging sets up the diagnostic logger the CLI writes to stderr.
// Report output never goes through it; see pkg/runlog for that.
package logging

import (
	"io"
	"log/slog"
)

// New returns a text logger writing to w. Debug records are dropped unless
// debug is set.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Subsystem tags every record from l with the component that produced it.
func Subsystem(l *slog.Logger, name string) *slog.Logger {
	return l.With(slog.String("subsystem", name))
}
