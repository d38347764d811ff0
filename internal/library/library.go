// SPDX-License-Identifier: MIT

// Package library implements the Recordings Library Manager (C9): the
// operations the UI collaborator drives directly (list, delete, rename,
// read/resolve sidecars, toggle favorite) plus the age- and size-based
// retention sweeps run at startup and after every completed recording.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lorec-gg/recorder-core/internal/config"
	"github.com/lorec-gg/recorder-core/internal/eventsink"
	"github.com/lorec-gg/recorder-core/internal/model"
	"github.com/lorec-gg/recorder-core/internal/recording"
	"github.com/lorec-gg/recorder-core/internal/sidecar"
)

// MetadataCollector is the subset of *metadata.Collector the library
// manager needs to resolve a Deferred sidecar on demand.
type MetadataCollector interface {
	Collect(ctx context.Context, matchID model.MatchId, offset float64) (model.GameMetadata, error)
}

// Manager implements every C9 operation against one recordings folder.
type Manager struct {
	Settings  *config.Settings
	Slot      *recording.Slot
	Collector MetadataCollector
	Sink      eventsink.EventSink

	// Clock is injected so retention's age math doesn't need real time
	// to pass in tests, the same way the teacher's backoff tests inject
	// durations instead of sleeping.
	Clock func() time.Time
}

// New builds a Manager wired to the real clock.
func New(settings *config.Settings, slot *recording.Slot, collector MetadataCollector, sink eventsink.EventSink) *Manager {
	return &Manager{Settings: settings, Slot: slot, Collector: collector, Sink: sink, Clock: time.Now}
}

func (m *Manager) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

// List returns every .mp4 in the recordings folder, excluding whichever
// one is currently being recorded.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.Settings.RecordingsFolder)
	if err != nil {
		return nil, fmt.Errorf("library: read recordings folder: %w", err)
	}

	current, recording := m.Slot.Get()
	var recordings []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mp4") {
			continue
		}
		path := filepath.Join(m.Settings.RecordingsFolder, entry.Name())
		if recording && path == current {
			continue
		}
		recordings = append(recordings, path)
	}
	return recordings, nil
}

// Delete removes path and its sidecar. Both removals are attempted even
// if one fails, per spec.md §4.9; the video's error takes precedence
// when both fail.
func (m *Manager) Delete(path string) error {
	videoErr := os.Remove(path)
	sidecarErr := sidecar.Remove(path)
	if videoErr != nil {
		return fmt.Errorf("library: delete video: %w", videoErr)
	}
	if sidecarErr != nil {
		return fmt.Errorf("library: delete sidecar: %w", sidecarErr)
	}
	return nil
}

// Rename moves path and its sidecar to share newName's basename within
// the same directory, failing if either destination already exists.
// The collision check is case-insensitive regardless of host platform:
// the core targets Windows exclusively, and NTFS treats "A.mp4" and
// "a.mp4" as the same file.
func (m *Manager) Rename(path, newName string) error {
	base := filepath.Base(newName)
	if base == "." || base == string(filepath.Separator) {
		return errors.New("library: invalid new filename")
	}
	dir := filepath.Dir(path)
	newPath := filepath.Join(dir, base)

	if exists, err := m.nameCollides(dir, filepath.Base(newPath)); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("library: %s already exists", newPath)
	}

	oldSidecar := sidecar.PathFor(path)
	newSidecar := sidecar.PathFor(newPath)

	if err := os.Rename(path, newPath); err != nil {
		return fmt.Errorf("library: rename video: %w", err)
	}
	if err := os.Rename(oldSidecar, newSidecar); err != nil {
		return fmt.Errorf("library: rename sidecar: %w", err)
	}
	return nil
}

// nameCollides reports whether dir already contains an entry whose name
// case-insensitively matches either newBase or its .json sidecar.
func (m *Manager) nameCollides(dir, newBase string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("library: scan destination directory: %w", err)
	}

	jsonBase := strings.TrimSuffix(newBase, filepath.Ext(newBase)) + ".json"
	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), newBase) || strings.EqualFold(entry.Name(), jsonBase) {
			return true, nil
		}
	}
	return false, nil
}

// GetMetadata reads path's sidecar, creating a fresh NoData one if none
// exists yet. A Deferred sidecar is returned as-is unless fetch is true,
// in which case the Metadata Collector is run and the sidecar promoted.
func (m *Manager) GetMetadata(ctx context.Context, path string, fetch bool) (*sidecar.File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("library: no such video: %w", err)
	}

	sidecarPath := sidecar.PathFor(path)
	if _, err := os.Stat(sidecarPath); os.IsNotExist(err) {
		file := sidecar.NewNoData()
		if err := sidecar.Save(path, file); err != nil {
			return nil, fmt.Errorf("library: save initial sidecar: %w", err)
		}
		return file, nil
	}

	file, err := sidecar.Load(path)
	if err != nil {
		return nil, err
	}
	if file.Kind() != sidecar.KindDeferred {
		return file, nil
	}
	if !fetch {
		return nil, sidecar.ErrDeferredNoFetch
	}

	deferredMatchID := file.MatchID()
	offset := deferredOffset(file)
	favorite := file.Favorite()

	gameMetadata, err := m.Collector.Collect(ctx, deferredMatchID, offset)
	if err != nil {
		return nil, fmt.Errorf("library: resolve deferred metadata: %w", err)
	}

	resolved := sidecar.NewMetadata(gameMetadata, favorite)
	if err := sidecar.Save(path, resolved); err != nil {
		return nil, fmt.Errorf("library: save resolved metadata: %w", err)
	}
	if m.Sink != nil {
		m.Sink.MetadataChanged([]string{sidecarPath})
	}
	return resolved, nil
}

func deferredOffset(f *sidecar.File) float64 {
	if f.Deferred == nil {
		return 0
	}
	return f.Deferred.IngameTimeRecStartOffset
}

// ToggleFavorite flips only the favorite field on path's sidecar.
func (m *Manager) ToggleFavorite(path string) error {
	file, err := sidecar.Load(path)
	if err != nil {
		return err
	}
	file.SetFavorite(!file.Favorite())
	if err := sidecar.Save(path, file); err != nil {
		return err
	}
	if m.Sink != nil {
		m.Sink.MetadataChanged([]string{sidecar.PathFor(path)})
	}
	return nil
}

// sortByCreatedNewestFirst is the ordering size-based retention walks
// from: favorites excluded beforehand, then newest-first so walking from
// the tail deletes the oldest non-favorites first (spec.md §4.9 "sort others
// newest-first; delete oldest-first from the tail").
func sortByCreatedNewestFirst(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		ti, _ := createdTime(paths[i])
		tj, _ := createdTime(paths[j])
		return ti.After(tj)
	})
}
