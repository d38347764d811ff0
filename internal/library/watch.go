// SPDX-License-Identifier: MIT

package library

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports eventsink.EventSink.RecordingsChanged whenever the
// recordings folder's file list changes — a file is created, removed,
// or renamed. The handle is replaced atomically under watchMu; starting
// a new watch stops whatever watcher preceded it (spec.md §5).
type Watcher struct {
	manager *Manager
	logger  *slog.Logger

	watchMu sync.Mutex
	current *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher builds a Watcher bound to manager's recordings folder.
func NewWatcher(manager *Manager, logger *slog.Logger) *Watcher {
	return &Watcher{manager: manager, logger: logger}
}

// Start begins watching the recordings folder, tearing down whatever
// watcher was previously running.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.manager.Settings.RecordingsFolder); err != nil {
		fsw.Close()
		return err
	}

	done := make(chan struct{})

	w.watchMu.Lock()
	previous, previousDone := w.current, w.done
	w.current, w.done = fsw, done
	w.watchMu.Unlock()

	if previous != nil {
		previous.Close()
		<-previousDone
	}

	go w.run(fsw, done)
	return nil
}

// Stop tears down the active watcher, if any.
func (w *Watcher) Stop() {
	w.watchMu.Lock()
	current, done := w.current, w.done
	w.current, w.done = nil, nil
	w.watchMu.Unlock()

	if current != nil {
		current.Close()
		<-done
	}
}

func (w *Watcher) run(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.manager.Sink != nil {
				w.manager.Sink.RecordingsChanged()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("library watcher error", "error", err)
			}
		}
	}
}
