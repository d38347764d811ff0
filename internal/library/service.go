// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"log/slog"
)

// RetentionService runs Cleanup as a supervisor.Service: once at
// startup, and again every time Notify is called — the "after each
// completed recording" trigger spec.md §4.9 calls for. The Game
// Listener's finalize step is what calls Notify, via the same
// EventSink.RecordingsChanged signal the UI shell listens to.
type RetentionService struct {
	manager *Manager
	logger  *slog.Logger
	trigger chan struct{}
}

// NewRetentionService builds a RetentionService over manager.
func NewRetentionService(manager *Manager, logger *slog.Logger) *RetentionService {
	return &RetentionService{manager: manager, logger: logger, trigger: make(chan struct{}, 1)}
}

// Name implements supervisor.Service.
func (s *RetentionService) Name() string { return "library-retention" }

// Notify schedules a retention sweep. Safe to call from any goroutine;
// redundant notifications while a sweep is already pending collapse
// into one, the same coalescing behavior a buffered size-1 channel
// gives fsnotify-driven consumers elsewhere in this codebase.
func (s *RetentionService) Notify() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run implements supervisor.Service: sweep once immediately (the
// startup sweep spec.md §4.9 requires), then again on every Notify
// until ctx is cancelled.
func (s *RetentionService) Run(ctx context.Context) error {
	s.manager.Cleanup(s.logger)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.trigger:
			s.manager.Cleanup(s.logger)
		}
	}
}
