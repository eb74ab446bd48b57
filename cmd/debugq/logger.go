package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/npratt/debugq/internal/config"
)

// NewRotatingLogger creates a JSON logger writing through lumberjack so
// the queue's event trace rotates instead of growing without bound.
func NewRotatingLogger(path string, rot config.LogRotationConfig, level slog.Leveler) (*slog.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// NewConsoleLogger creates a logger for stderr: human-readable text on a
// TTY, JSON otherwise.
func NewConsoleLogger(level slog.Leveler) *slog.Logger {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewWriterLogger creates a JSON logger writing to the given writer.
// Useful for tests that capture output.
func NewWriterLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
