// Package logger provides process-wide logging for medrag.
// Debug, Info and Warn are printed only in verbose mode; Error is always printed.
// The server switches to JSON lines with SetJSON so logs can be shipped as-is.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	jsonLog *slog.Logger
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	if jsonLog != nil {
		jsonLog = newJSONLogger(w)
	}
}

// SetJSON switches between plain prefixed lines and slog JSON records.
func SetJSON(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		jsonLog = newJSONLogger(output)
	} else {
		jsonLog = nil
	}
}

func newJSONLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		emit(slog.LevelDebug, "[DEBUG] ", format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	if jsonLog != nil {
		jsonLog.Debug("section", "name", name)
		return
	}
	fmt.Fprintf(output, "\n=== %s ===\n", name)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		emit(slog.LevelInfo, "[INFO] ", format, args...)
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		emit(slog.LevelWarn, "[WARN] ", format, args...)
	}
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	emit(slog.LevelError, "[ERROR] ", format, args...)
}

// emit writes one record. Callers hold mu.
func emit(level slog.Level, prefix, format string, args ...any) {
	if jsonLog != nil {
		jsonLog.Log(context.Background(), level, fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}
