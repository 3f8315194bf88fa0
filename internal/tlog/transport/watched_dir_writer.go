package transport

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/alxayo/go-tlog/internal/errors"
	"github.com/alxayo/go-tlog/internal/tlog/sink"
)

// WatchedDirWriter wraps a FileWriter and watches its containing
// directory so that an externally triggered rotation (a log shipper
// renaming or removing the active file out from under the recorder)
// causes the writer to transparently reopen a fresh file at the same
// path, instead of silently writing into an unlinked inode.
type WatchedDirWriter struct {
	fw      *FileWriter
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// NewWatchedDirWriter creates a FileWriter at path and starts watching
// its parent directory for rename/remove events targeting that path.
func NewWatchedDirWriter(path string, logger *slog.Logger) (*WatchedDirWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := NewFileWriter(path, logger)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = fw.Close()
		return nil, errors.NewTransportError("watcheddir.newwatcher", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		_ = fw.Close()
		return nil, errors.NewTransportError("watcheddir.add", err)
	}

	w := &WatchedDirWriter{fw: fw, watcher: watcher, logger: logger, done: make(chan struct{})}
	go w.watch(path)
	return w, nil
}

func (w *WatchedDirWriter) watch(path string) {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != path {
				continue
			}
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.logger.Info("active recording file rotated externally, reopening", "path", path, "op", ev.Op.String())
			if err := w.fw.reopen(); err != nil {
				w.logger.Error("failed to reopen rotated file", "path", path, "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("directory watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Write appends msg as a single JSON line, delegating to the wrapped
// FileWriter.
func (w *WatchedDirWriter) Write(ctx context.Context, msg sink.Message) error {
	return w.fw.Write(ctx, msg)
}

// Close stops the directory watcher and closes the underlying file.
func (w *WatchedDirWriter) Close() error {
	close(w.done)
	_ = w.watcher.Close()
	return w.fw.Close()
}
