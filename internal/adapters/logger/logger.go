// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"gopkg.in/natefinch/lumberjack.v2"
)

var _ ports.Logger = (*Logger)(nil)

// messager describes an error that can report its own message without the chain.
// zerr.Error provides it.
type messager interface {
	Message() string
}

const (
	debugLogMaxSizeMB  = 10
	debugLogMaxBackups = 3
	debugLogMaxAgeDays = 14
)

// Logger implements ports.Logger using log/slog.
type Logger struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	output    io.Writer
	jsonMode  bool
	verbose   bool
	debugFile io.WriteCloser
}

// New creates a new Logger writing pretty output to stderr.
func New() *Logger {
	l := &Logger{output: os.Stderr}
	l.rebuild()
	return l
}

// SetOutput updates the console destination. If w is nil, os.Stderr is used.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.rebuild()
}

// SetJSON switches the console between JSON and pretty logging.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jsonMode = enable
	l.rebuild()
}

// SetVerbose lowers the console level to debug and adds stack details to errors.
func (l *Logger) SetVerbose(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.verbose = enable
	l.rebuild()
}

// SetDebugFile tees every record as JSON into a size-rotated file at path.
func (l *Logger) SetDebugFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.debugFile != nil {
		_ = l.debugFile.Close()
	}
	l.debugFile = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    debugLogMaxSizeMB,
		MaxBackups: debugLogMaxBackups,
		MaxAge:     debugLogMaxAgeDays,
	}
	l.rebuild()
	return nil
}

// DebugWriter returns the rotating debug file, or nil when none is configured.
func (l *Logger) DebugWriter() io.Writer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.debugFile == nil {
		return nil
	}
	return l.debugFile
}

// Close releases the debug file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.debugFile == nil {
		return nil
	}
	err := l.debugFile.Close()
	l.debugFile = nil
	l.rebuild()
	return err
}

// rebuild must be called with mu held.
func (l *Logger) rebuild() {
	level := slog.LevelInfo
	if l.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if l.jsonMode {
		console = slog.NewJSONHandler(l.output, opts)
	} else {
		console = NewPrettyHandler(l.output, opts)
	}

	if l.debugFile == nil {
		l.logger = slog.New(console)
		return
	}

	file := slog.NewJSONHandler(l.debugFile, &slog.HandlerOptions{Level: slog.LevelDebug})
	l.logger = slog.New(teeHandler{console, file})
}

// Debug logs a diagnostic message.
func (l *Logger) Debug(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Debug(msg)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs an error together with its cause chain.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.jsonMode {
		l.logger.Error("operation failed", "error", err)
		return
	}

	l.logger.Error(formatChain(errorChain(err)))
	if l.verbose {
		l.logger.Debug(fmt.Sprintf("%+v", err))
	}
}

// errorChain collects the message of every error in the chain. Empty messages, as
// produced by metadata-only wrappers, are skipped.
func errorChain(err error) []string {
	var messages []string
	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			messages = append(messages, current.Error())
			break
		}
		if msg := m.Message(); msg != "" {
			messages = append(messages, msg)
		}
		current = errors.Unwrap(current)
	}
	return messages
}

func formatChain(messages []string) string {
	var lines []string
	for i, msg := range messages {
		parts := strings.Split(msg, "\n")

		if i == 0 {
			lines = append(lines, "Error: "+parts[0])
			for _, line := range parts[1:] {
				lines = append(lines, "       "+line)
			}
			continue
		}

		if i == 1 {
			lines = append(lines, "", "  Caused by:")
		}
		lines = append(lines, "    → "+parts[0])
		for _, line := range parts[1:] {
			lines = append(lines, "      "+line)
		}
	}
	return strings.Join(lines, "\n")
}
