// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Options selects where log lines go and how verbose they are.
type Options struct {
	Debug bool
	// File, when set, receives all log output instead of Stderr.
	File   string
	Stderr io.Writer
}

// New returns a text logger and a close function for the underlying file.
// Without Debug only warnings and errors are written so progress output on
// the terminal stays readable.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := slog.LevelWarn
	if opts.Debug {
		level = slog.LevelDebug
	}

	var (
		w       io.Writer = opts.Stderr
		closeFn           = func() error { return nil }
	)
	if w == nil {
		w = os.Stderr
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
		if !opts.Debug {
			level = slog.LevelInfo
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}
