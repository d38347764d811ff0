// SPDX-License-Identifier: MIT

// Package eventsink defines the external collaborator interfaces the
// core notifies or reads from, but never owns: the UI shell's event
// feed, the tray icon, and the window-state persistence hook (spec.md
// §6's "interfaces consumed from external collaborators"). The core
// ships a logging-only implementation of each so it runs standalone
// with no UI shell attached; a real shell wires its own implementation
// in at the entrypoint.
package eventsink

import "log/slog"

// EventSink is the UI shell's notification feed. The core calls these
// as fire-and-forget signals; a sink that blocks or panics must not be
// allowed to affect recording behavior, so every production
// implementation is expected to be non-blocking.
type EventSink interface {
	// RecordingsChanged reports that the recordings folder's file list
	// changed (a recording finished, one was deleted or renamed).
	RecordingsChanged()
	// MetadataChanged reports that the sidecars at paths were rewritten
	// (e.g. a Deferred sidecar was promoted to Metadata).
	MetadataChanged(paths []string)
	// MarkerflagsChanged reports that a recording's highlight markers
	// were updated.
	MarkerflagsChanged()
}

// TrayIndicator reflects whether a recording is currently in progress.
type TrayIndicator interface {
	SetRecording(active bool)
}

// WindowState persists UI shell window geometry across restarts. The
// core never reads it back; spec.md §6 lists it only so an
// implementation knows not to route window-state through the core.
type WindowState interface {
	Save(data []byte) error
}

// NoopSink is the default EventSink used when no UI shell is attached:
// it logs at Debug level and otherwise does nothing.
type NoopSink struct {
	Logger *slog.Logger
}

func (n NoopSink) RecordingsChanged() {
	n.log("recordings changed")
}

func (n NoopSink) MetadataChanged(paths []string) {
	n.log("metadata changed", "paths", paths)
}

func (n NoopSink) MarkerflagsChanged() {
	n.log("markerflags changed")
}

func (n NoopSink) log(msg string, args ...interface{}) {
	if n.Logger != nil {
		n.Logger.Debug(msg, args...)
	}
}

// NoopTray is the default TrayIndicator used when no UI shell is
// attached.
type NoopTray struct {
	Logger *slog.Logger
}

func (n NoopTray) SetRecording(active bool) {
	if n.Logger != nil {
		n.Logger.Debug("tray recording indicator", "active", active)
	}
}
