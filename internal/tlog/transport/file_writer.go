package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/alxayo/go-tlog/internal/errors"
	"github.com/alxayo/go-tlog/internal/tlog/sink"
)

// FileWriter appends newline-delimited JSON messages to a local file. It
// is safe for single-goroutine use directly; MultiWriter is responsible
// for any cross-destination concurrency.
type FileWriter struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	logger *slog.Logger
}

// NewFileWriter opens (creating if needed) path for append and returns a
// writer ready to receive messages.
func NewFileWriter(path string, logger *slog.Logger) (*FileWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.NewTransportError("file.open", err)
	}
	return &FileWriter{path: path, f: f, logger: logger}, nil
}

// Write appends msg as a single JSON line.
func (w *FileWriter) Write(ctx context.Context, msg sink.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return errors.NewTransportError("file.write", os.ErrClosed)
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.NewTransportError("file.marshal", err)
	}
	b = append(b, '\n')

	if _, err := w.f.Write(b); err != nil {
		w.logger.Error("file writer write failed", "path", w.path, "error", err)
		return errors.NewTransportError("file.write", err)
	}
	return nil
}

// reopen closes and reopens the underlying file at the same path. Used
// by WatchedDirWriter after an external rotation moves the active file
// out from under the writer.
func (w *FileWriter) reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f != nil {
		_ = w.f.Close()
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		w.f = nil
		return errors.NewTransportError("file.reopen", err)
	}
	w.f = f
	return nil
}

// Close releases the underlying file handle.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
