package logging

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// bufferingTeeWriter is a thread-safe writer that can buffer output and later
// flush it to a new destination. It can also tee output to a file.
type bufferingTeeWriter struct {
	mu          sync.Mutex
	buffer      *bytes.Buffer
	target      io.Writer
	file        *os.File
	isBuffering bool
}

func (w *bufferingTeeWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error

	if w.isBuffering {
		w.buffer.Write(p)
	} else if w.target != nil {
		if _, err := w.target.Write(p); err != nil {
			firstErr = err
		}
	}

	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return len(p), firstErr
}

// Options selects how Init sets up the default logger.
type Options struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (case insensitive).
	Level string
	// Format is text, json or journal.
	Format string
	// File, if set, receives a copy of every record.
	File string
	// Buffer holds output back until SetOutput is called, used while
	// the TUI is not drawn yet.
	Buffer bool
}

var writer *bufferingTeeWriter

// ParseLevel maps a level name to slog.Level, defaulting to INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Init initializes the logging system and installs the result as the
// slog default logger.
func Init(opts Options) error {
	writer = &bufferingTeeWriter{
		buffer:      &bytes.Buffer{},
		target:      os.Stderr,
		isBuffering: opts.Buffer,
	}

	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		writer.file = file
	}

	level := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	journalMissing := false
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	case "journal":
		if journalAvailable() {
			handler = NewJournalHandler(level)
			break
		}
		journalMissing = true
		handler = slog.NewTextHandler(writer, handlerOpts)
	default:
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	slog.SetDefault(slog.New(handler))
	if journalMissing {
		slog.Warn("systemd journal not available, logging as text")
	}
	return nil
}

// SetOutput flushes the buffer to the new writer and starts live logging.
// Without Init it does nothing, slog then writes through its default.
func SetOutput(newTarget io.Writer) error {
	if writer == nil {
		return nil
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()

	if writer.buffer.Len() > 0 {
		if _, err := newTarget.Write(writer.buffer.Bytes()); err != nil {
			return err
		}
		writer.buffer.Reset()
	}

	writer.target = newTarget
	writer.isBuffering = false
	return nil
}

// BufferOutput stops live logging and starts buffering.
func BufferOutput() {
	if writer == nil {
		return
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()

	writer.target = nil
	writer.isBuffering = true
}

// Close flushes records still held back to stderr and closes the log
// file. The file already has a copy of every record.
func Close() error {
	if writer == nil {
		return nil
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()

	var firstErr error
	if writer.buffer.Len() > 0 {
		if _, err := os.Stderr.Write(writer.buffer.Bytes()); err != nil {
			firstErr = err
		}
	}
	if writer.file != nil {
		if err := writer.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		writer.file = nil
	}
	writer.buffer.Reset()
	return firstErr
}
