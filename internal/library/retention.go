// SPDX-License-Identifier: MIT

package library

import (
	"log/slog"
	"os"
	"time"

	"github.com/lorec-gg/recorder-core/internal/sidecar"
)

// Cleanup runs age-based retention then size-based retention, matching
// cleanup_recordings's call order: stale recordings are pruned first,
// then whatever remains is trimmed down to the size cap.
func (m *Manager) Cleanup(logger *slog.Logger) {
	m.CleanupByAge(logger)
	m.CleanupBySize(logger)
}

// CleanupByAge deletes every non-favorite recording older than
// Settings.MaxAgeDays. Any error determining a file's age or favorite
// status defaults to keeping it (spec.md §7): an ambiguous state must
// never turn into data loss.
func (m *Manager) CleanupByAge(logger *slog.Logger) {
	recordings, err := m.List()
	if err != nil {
		if logger != nil {
			logger.Warn("retention: list recordings failed", "error", err)
		}
		return
	}

	maxAge := time.Duration(m.Settings.MaxAgeDays) * 24 * time.Hour
	now := m.now()

	for _, path := range recordings {
		created, err := createdTime(path)
		if err != nil {
			if logger != nil {
				logger.Warn("retention: creation time unavailable, keeping", "path", path, "error", err)
			}
			continue
		}
		if now.Sub(created) <= maxAge {
			continue
		}
		if m.isFavorite(path, logger) {
			continue
		}

		if err := m.Delete(path); err != nil {
			if logger != nil {
				logger.Warn("retention: delete by age failed", "path", path, "error", err)
			}
		}
	}
}

// CleanupBySize trims the recordings folder down to Settings.MaxTotalSizeGB.
// Favorites are never deleted, but their size (and the currently-recording
// file's size) always counts against the cap. Non-favorites are sorted
// newest-first and deleted from the tail — oldest first — until the
// running total is at or under the cap.
func (m *Manager) CleanupBySize(logger *slog.Logger) {
	recordings, err := m.List()
	if err != nil {
		if logger != nil {
			logger.Warn("retention: list recordings failed", "error", err)
		}
		return
	}

	capBytes := int64(m.Settings.MaxTotalSizeGB * 1024 * 1024 * 1024)

	var total int64
	var others []string
	for _, path := range recordings {
		size := m.fileSize(path, logger)
		if m.isFavorite(path, logger) {
			total += size
			continue
		}
		total += size
		others = append(others, path)
	}

	if current, recording := m.Slot.Get(); recording {
		total += m.fileSize(current, logger)
	}

	if total <= capBytes {
		return
	}

	sortByCreatedNewestFirst(others)

	for i := len(others) - 1; i >= 0 && total > capBytes; i-- {
		path := others[i]
		size := m.fileSize(path, logger)
		if err := m.Delete(path); err != nil {
			if logger != nil {
				logger.Warn("retention: delete by size failed", "path", path, "error", err)
			}
			continue
		}
		total -= size
	}
}

func (m *Manager) isFavorite(path string, logger *slog.Logger) bool {
	file, err := sidecar.Load(path)
	if err != nil {
		if logger != nil {
			logger.Warn("retention: sidecar unreadable, treating as favorite", "path", path, "error", err)
		}
		return true
	}
	return file.Favorite()
}

func (m *Manager) fileSize(path string, logger *slog.Logger) int64 {
	info, err := os.Stat(path)
	if err != nil {
		if logger != nil {
			logger.Warn("retention: size unavailable, treating as zero", "path", path, "error", err)
		}
		return 0
	}
	return info.Size()
}
