// SPDX-License-Identifier: MIT

// Package hotkey runs the Highlight Hotkey Task (C5): while a recording is
// active it listens for a process-global "user pressed the configured
// hotkey" signal and, for each press, queries the ingame client for the
// current clock and appends it (in milliseconds) to an in-memory vector.
// On Stop, the accumulated vector is returned.
package hotkey

import (
	"context"
	"log/slog"

	"github.com/lorec-gg/recorder-core/internal/ingame"
)

// signalCapacity is the buffered channel depth for hotkey presses. Beyond
// this, presses are dropped silently (spec.md §4.5) — a human mashing a
// highlight key faster than 128 outstanding presses can be drained is
// producing noise, not intent.
const signalCapacity = 128

// clockSource is the subset of *ingame.Client the task needs, so tests
// can substitute a fake without a real Live Client Data API.
type clockSource interface {
	GameStats(ctx context.Context) (ingame.GameStats, error)
}

// register and unregister are implemented per-platform
// (register_windows.go / register_other.go). register returns a channel
// that receives a value each time the bound key combination is pressed,
// and a teardown function.
var registerHotkey func(binding string) (presses <-chan struct{}, teardown func(), err error)

// Task listens for highlight-hotkey presses for the lifetime of one
// recording and records the ingame clock at each press.
type Task struct {
	logger *slog.Logger
	client clockSource

	teardown func()
	presses  <-chan struct{}
	signals  chan struct{}
	done     chan []float64
	cancel   context.CancelFunc
}

// Start registers the global hotkey described by binding (e.g. "Alt+F6",
// the string form persisted in settings) and begins accumulating
// timestamps against client's ingame clock. The task runs until Stop is
// called.
func Start(client *ingame.Client, binding string, logger *slog.Logger) (*Task, error) {
	presses, teardown, err := registerHotkey(binding)
	if err != nil {
		return nil, err
	}
	return startTask(client, presses, teardown, logger), nil
}

// startTask wires a Task to an already-registered press channel. Split
// out from Start so tests can substitute a fake clockSource and a fake
// press channel without going through the platform hotkey registration.
func startTask(client clockSource, presses <-chan struct{}, teardown func(), logger *slog.Logger) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{
		logger:   logger,
		client:   client,
		teardown: teardown,
		presses:  presses,
		signals:  make(chan struct{}, signalCapacity),
		done:     make(chan []float64, 1),
		cancel:   cancel,
	}

	go t.forward(ctx)
	go t.collect(ctx)
	return t
}

// forward relays OS-level key presses into the task's buffered signal
// channel, dropping silently (with a Debug log line, never Warn/Error —
// this is documented, expected behavior, not a fault) when the consumer
// falls behind.
func (t *Task) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-t.presses:
			if !ok {
				return
			}
			select {
			case t.signals <- struct{}{}:
			default:
				if t.logger != nil {
					t.logger.Debug("highlight hotkey press dropped, buffer full")
				}
			}
		}
	}
}

// collect is the accumulation loop: one timestamp per drained signal,
// queried live from the ingame clock rather than stamped with wall time,
// since the recording is indexed by ingame time.
func (t *Task) collect(ctx context.Context) {
	var timestamps []float64
	for {
		select {
		case <-ctx.Done():
			t.done <- timestamps
			return
		case <-t.signals:
			stats, err := t.client.GameStats(ctx)
			if err != nil {
				if t.logger != nil {
					t.logger.Debug("highlight hotkey: failed to read ingame clock", "error", err)
				}
				continue
			}
			timestamps = append(timestamps, stats.GameTime*1000)
		}
	}
}

// Stop unregisters the hotkey and returns the accumulated highlight
// timestamps, in milliseconds since game start.
func (t *Task) Stop() []float64 {
	t.cancel()
	timestamps := <-t.done
	t.teardown()
	return timestamps
}
