package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lorec-gg/recorder-core/internal/config"
	"github.com/lorec-gg/recorder-core/internal/recording"
)

type recordedSink struct {
	changed chan struct{}
}

func (s *recordedSink) RecordingsChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
func (s *recordedSink) MetadataChanged(paths []string) {}
func (s *recordedSink) MarkerflagsChanged()             {}

func TestWatcherReportsRecordingsChangedOnCreate(t *testing.T) {
	dir := t.TempDir()
	sink := &recordedSink{changed: make(chan struct{}, 1)}
	mgr := New(&config.Settings{RecordingsFolder: dir}, &recording.Slot{}, nil, sink)
	w := NewWatcher(mgr, nil)

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "new.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-sink.changed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for RecordingsChanged notification")
	}
}

func TestWatcherRestartReplacesPreviousHandle(t *testing.T) {
	dir := t.TempDir()
	mgr := New(&config.Settings{RecordingsFolder: dir}, &recording.Slot{}, nil, nil)
	w := NewWatcher(mgr, nil)

	if err := w.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	w.Stop()
}
