package logging

import (
	"io"
	"log/slog"
)

// NewNullLogger returns a logger that discards everything. Intended for tests.
func NewNullLogger() Logger {
	return &SlogLogger{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

var _ Logger = (*SlogLogger)(nil)

// Default returns a text logger writing to w at the given level.
func Default(w io.Writer, level slog.Level) Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
