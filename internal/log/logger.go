// Package log builds the structured logger shared by the register components.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// FileName is the log file created inside the log directory.
const FileName = "bourse.log"

// Logger is a slog.Logger bound to an open log file.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a logger appending to <logDir>/bourse.log. When debug is set,
// records at debug level and above are also written to stderr.
func New(logDir string, debug bool) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, FileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	level := slog.LevelInfo
	var w io.Writer = file
	if debug {
		level = slog.LevelDebug
		w = io.MultiWriter(file, os.Stderr)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger: slog.New(handler).With("pid", os.Getpid()),
		file:   file,
	}, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
