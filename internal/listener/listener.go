// SPDX-License-Identifier: MIT

// Package listener implements the Game Listener (C7): the state machine
// that turns the control plane's session-phase and end-of-game WebSocket
// topics into Recording Task lifecycles. It is the sole owner of the
// CurrentlyRecording slot's writes and the sole caller of a Recording
// Task's engine shutdown, per the ordering the original coordinator
// relies on — the task that spawns the engine is not the task that
// tears it down.
package listener

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lorec-gg/recorder-core/internal/config"
	"github.com/lorec-gg/recorder-core/internal/controlplane"
	"github.com/lorec-gg/recorder-core/internal/eventsink"
	"github.com/lorec-gg/recorder-core/internal/ingame"
	"github.com/lorec-gg/recorder-core/internal/model"
	"github.com/lorec-gg/recorder-core/internal/recording"
	"github.com/lorec-gg/recorder-core/internal/util"
)

// reconnectInterval is the sleep between attempts to find the launcher
// and (re)connect the WebSocket, both when the launcher isn't running
// yet and after a session ends (spec.md §5's "outer 1 s reconnect sleep
// in the listener"; §7 item 2).
const reconnectInterval = 1 * time.Second

// joinTimeout bounds how long stopping a Recording Task waits for it to
// report back before the listener gives up on it (spec.md §5:
// "Joining a cancelled task is bounded by a 1 s timeout, after which the
// task is forcibly aborted"). Go has no goroutine-abort primitive; the
// cancelled task keeps tearing itself down cooperatively in the
// background, the listener just stops waiting on it.
const joinTimeout = 1 * time.Second

var errJoinTimedOut = errors.New("listener: recording task did not stop within the join timeout")

// recorder is the subset of *recording.Task the listener depends on,
// narrowed to an interface so tests can substitute a fake engine/window
// pipeline without touching real Win32 or launcher state.
type recorder interface {
	Record(ctx context.Context, matchID model.MatchId) (*recording.Result, error)
}

// MetadataCollector produces the authoritative GameMetadata for a
// finished recording (C8's process_data_with_retry). Implementations
// carry their own retry budget; Collect should return once it has
// either succeeded or exhausted that budget.
type MetadataCollector interface {
	Collect(ctx context.Context, matchID model.MatchId, offset float64) (model.GameMetadata, error)
}

// restClient is the subset of *controlplane.Client the listener needs,
// so tests can substitute a fake without a real launcher.
type restClient interface {
	Get(ctx context.Context, path string, out interface{}) error
}

// subscription is the subset of *controlplane.Subscription the listener
// consumes.
type subscription interface {
	Frames() <-chan controlplane.Frame
	Err() <-chan error
	Close() error
}

// Listener runs the Game Listener state machine for as long as ctx
// stays alive, rediscovering launcher credentials and reconnecting
// after every session ends or fails.
type Listener struct {
	EnginePath string
	Settings   *config.Settings
	Ingame     *ingame.Client
	Tray       eventsink.TrayIndicator
	Sink       eventsink.EventSink
	Slot       *recording.Slot
	Collector  MetadataCollector
	Logger     *slog.Logger

	// Tracker, if set, is handed to every Recording Task so its spawned
	// engine child processes can be checked for leaks.
	Tracker *util.ResourceTracker

	discoverCredentials func() (controlplane.Credentials, error)
	newRESTClient       func(controlplane.Credentials) (restClient, error)
	subscribe           func(ctx context.Context, creds controlplane.Credentials, topic string) (subscription, error)
	newRecorder         func() recorder

	state listenerState
}

// New builds a Listener wired to the real launcher, window, and engine.
func New(enginePath string, settings *config.Settings, ingameClient *ingame.Client, tray eventsink.TrayIndicator, sink eventsink.EventSink, slot *recording.Slot, collector MetadataCollector, logger *slog.Logger) *Listener {
	l := &Listener{
		EnginePath: enginePath,
		Settings:   settings,
		Ingame:     ingameClient,
		Tray:       tray,
		Sink:       sink,
		Slot:       slot,
		Collector:  collector,
		Logger:     logger,
	}
	l.discoverCredentials = controlplane.Discover
	l.newRESTClient = func(creds controlplane.Credentials) (restClient, error) {
		return controlplane.NewClient(creds.RESTCredentials())
	}
	l.subscribe = func(ctx context.Context, creds controlplane.Credentials, topic string) (subscription, error) {
		return controlplane.Subscribe(ctx, creds.WebSocketCredentials(), topic)
	}
	l.newRecorder = func() recorder {
		task := recording.NewTask(l.EnginePath, l.Settings, l.Ingame, l.Tray, l.Slot, l.Logger)
		task.Tracker = l.Tracker
		return task
	}
	return l
}

// Run discovers the launcher, runs one session's worth of the state
// machine, and repeats after reconnectInterval until ctx is done —
// "the listener sleeps 1 s and retries forever until cancelled"
// (spec.md §7 item 2).
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.runOnce(ctx); err != nil && l.Logger != nil {
			l.Logger.Info("stopped listening for games", "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectInterval):
		}
	}
}

// runOnce discovers credentials, opens both subscriptions, bootstraps
// from the initial REST snapshot, and drives the state machine until
// the stream ends, a decode error kills it, or ctx is cancelled.
func (l *Listener) runOnce(ctx context.Context) error {
	creds, err := l.discoverCredentials()
	if err != nil {
		return err
	}

	rest, err := l.newRESTClient(creds)
	if err != nil {
		return err
	}

	platformID, err := fetchPlatformID(ctx, rest)
	if err != nil {
		return err
	}

	sessionSub, err := l.subscribe(ctx, creds, controlplane.PathSessionPhase)
	if err != nil {
		return err
	}
	defer func() { _ = sessionSub.Close() }()

	eogSub, err := l.subscribe(ctx, creds, controlplane.PathEogStats)
	if err != nil {
		return err
	}
	defer func() { _ = eogSub.Close() }()

	l.state = listenerState{kind: stateIdle}
	defer l.shutdownState(ctx)

	// Bootstrap: inject the current session snapshot as a synthetic
	// first event so the machine picks up a game already in progress.
	// The launcher reference implementation issues this same REST GET
	// twice in a row before entering its event loop; that looks like a
	// copy/paste artifact rather than a deliberate retry, so a single
	// GET is used here.
	var phase model.SessionPhase
	if err := rest.Get(ctx, controlplane.PathSessionPhase, &phase); err == nil {
		l.transition(ctx, platformID, model.SessionEvent{Session: &phase})
	} else if l.Logger != nil {
		l.Logger.Info("no initial session snapshot", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case frame, ok := <-sessionSub.Frames():
			if !ok {
				return <-sessionSub.Err()
			}
			l.handleSessionFrame(ctx, platformID, frame)

		case frame, ok := <-eogSub.Frames():
			if !ok {
				return <-eogSub.Err()
			}
			l.handleEogFrame(ctx, platformID, frame)
		}
	}
}

func fetchPlatformID(ctx context.Context, rest restClient) (string, error) {
	var platformID string
	if err := rest.Get(ctx, controlplane.PathPlatformID, &platformID); err != nil {
		return "", err
	}
	return platformID, nil
}

func (l *Listener) handleSessionFrame(ctx context.Context, platformID string, frame controlplane.Frame) {
	if !frame.IsUpdate() {
		return
	}
	var phase model.SessionPhase
	if err := unmarshalFrame(frame, &phase); err != nil {
		if l.Logger != nil {
			l.Logger.Error("failed to deserialize session event", "error", err)
		}
		return
	}
	l.transition(ctx, platformID, model.SessionEvent{Session: &phase})
}

func (l *Listener) handleEogFrame(ctx context.Context, platformID string, frame controlplane.Frame) {
	if !frame.IsUpdate() {
		return
	}
	l.transition(ctx, platformID, model.SessionEvent{EogStats: &model.EogStats{}})
}

// shutdownState is run when runOnce returns for any reason: if a
// recording is still in flight, stop it the same way a normal
// Recording→EndOfGame transition would (spec.md §4.7 "any: WebSocket
// stream ends or outer cancel").
func (l *Listener) shutdownState(ctx context.Context) {
	if l.state.kind != stateRecording {
		return
	}
	_, _ = l.stopRecording(ctx, l.state.running)
	l.state = listenerState{kind: stateIdle}
}
