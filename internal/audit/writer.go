package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pisshoff/pisshoff/internal/logger"
)

const flushInterval = 5 * time.Second

// Writer is the single consumer of completed connection logs. It owns the
// audit output file and is the only goroutine that writes to it.
type Writer struct {
	path   string
	logs   chan *Log
	reload chan struct{}
	done   chan struct{}
}

// NewWriter creates a writer bound to path; call Run in its own goroutine
// to start consuming.
func NewWriter(path string) *Writer {
	return &Writer{
		path:   path,
		logs:   make(chan *Log, 256),
		reload: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Submit enqueues a completed log for writing. It never blocks the caller;
// a full queue drops the log (logging a warning) rather than stall a
// connection's shutdown path.
func (w *Writer) Submit(log *Log) {
	select {
	case w.logs <- log:
	default:
		logger.Warn("audit queue full, dropping log", "connection_id", log.ConnectionID)
	}
}

// Reload asks the writer to flush and reopen its output file, e.g. after
// an external log-rotation tool has renamed it out from under us.
func (w *Writer) Reload() {
	select {
	case w.reload <- struct{}{}:
	default:
	}
}

// Run consumes logs until Shutdown is called, then drains and flushes
// whatever remains before returning.
func (w *Writer) Run() error {
	writer, file, err := w.open()
	if err != nil {
		return err
	}
	defer file.Close()

	watch, err := w.watchDir()
	if err != nil {
		logger.Warn("audit: could not watch output directory for rotation", "error", err)
	} else {
		defer watch.Close()
	}

	var watchEvents chan fsnotify.Event
	var watchErrors chan error
	if watch != nil {
		watchEvents = watch.Events
		watchErrors = watch.Errors
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	pending := false

	for {
		select {
		case log, ok := <-w.logs:
			if !ok {
				return w.flushAndClose(writer)
			}
			if err := w.append(writer, log); err != nil {
				return err
			}
			pending = true

		case <-w.done:
			return w.drainAndClose(writer)

		case <-ticker.C:
			if pending {
				logger.Debug("flushing audit log to disk")
				if err := writer.Flush(); err != nil {
					return err
				}
				pending = false
			}

		case <-w.reload:
			if err := w.reopen(&writer, &file); err != nil {
				return err
			}
			pending = false

		case ev, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			if ev.Name == w.path && (ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)) {
				logger.Info("audit output file moved, reopening", "path", w.path)
				if err := w.reopen(&writer, &file); err != nil {
					return err
				}
				pending = false
			}

		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			logger.Warn("audit: watch error", "error", err)
		}
	}
}

// Shutdown signals Run to drain its queue, flush, and return.
func (w *Writer) Shutdown() {
	close(w.done)
}

func (w *Writer) open() (*bufio.Writer, *os.File, error) {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit output file: %w", err)
	}
	return bufio.NewWriter(file), file, nil
}

func (w *Writer) reopen(writer **bufio.Writer, file **os.File) error {
	logger.Info("flushing audit log before reopening")
	if err := (*writer).Flush(); err != nil {
		return err
	}
	(*file).Close()

	newWriter, newFile, err := w.open()
	if err != nil {
		return err
	}
	*writer = newWriter
	*file = newFile
	logger.Info("reopened audit output file", "path", w.path)
	return nil
}

func (w *Writer) watchDir() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func (w *Writer) append(writer *bufio.Writer, log *Log) error {
	encoded, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal audit log: %w", err)
	}
	if _, err := writer.Write(encoded); err != nil {
		return err
	}
	_, err = writer.WriteString("\n")
	return err
}

func (w *Writer) drainAndClose(writer *bufio.Writer) error {
	for {
		select {
		case log, ok := <-w.logs:
			if !ok {
				return w.flushAndClose(writer)
			}
			if err := w.append(writer, log); err != nil {
				return err
			}
		default:
			return w.flushAndClose(writer)
		}
	}
}

func (w *Writer) flushAndClose(writer *bufio.Writer) error {
	return writer.Flush()
}
