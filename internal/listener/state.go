// SPDX-License-Identifier: MIT

package listener

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lorec-gg/recorder-core/internal/controlplane"
	"github.com/lorec-gg/recorder-core/internal/model"
	"github.com/lorec-gg/recorder-core/internal/recording"
	"github.com/lorec-gg/recorder-core/internal/sidecar"
	"github.com/lorec-gg/recorder-core/internal/util"
)

type stateKind int

const (
	stateIdle stateKind = iota
	stateRecording
	stateEndOfGame
)

// listenerState is the state machine's current variant. Exactly one of
// running/metadata is meaningful, selected by kind — the Go rendering of
// the original's `enum State { Idle, Recording(task), EndOfGame(meta) }`.
type listenerState struct {
	kind     stateKind
	running  *runningRecording
	metadata model.Metadata
}

func (k stateKind) String() string {
	switch k {
	case stateRecording:
		return "Recording"
	case stateEndOfGame:
		return "EndOfGame"
	default:
		return "Idle"
	}
}

// runningRecording tracks one in-flight Recording Task: its cancel
// function and the channel its goroutine reports back on.
type runningRecording struct {
	cancel context.CancelFunc
	done   chan recordOutcome
}

type recordOutcome struct {
	result *recording.Result
	err    error
}

func (l *Listener) startRecording(parent context.Context, matchID model.MatchId) *runningRecording {
	ctx, cancel := context.WithCancel(parent)
	r := &runningRecording{cancel: cancel, done: make(chan recordOutcome, 1)}
	task := l.newRecorder()

	go func() {
		result, err := task.Record(ctx, matchID)
		r.done <- recordOutcome{result: result, err: err}
	}()

	return r
}

// stopRecording cancels a running Recording Task and waits up to
// joinTimeout for it to report back. On success it is the listener's
// job — not the task's — to stop and shut down the engine and clear the
// CurrentlyRecording slot and tray indicator (see recording_task.rs's
// split between record() and the caller's stop()).
func (l *Listener) stopRecording(ctx context.Context, r *runningRecording) (model.Metadata, error) {
	r.cancel()

	select {
	case out := <-r.done:
		if out.err != nil {
			return model.Metadata{}, out.err
		}
		l.teardownEngine(ctx, out.result)
		return out.result.Metadata, nil

	case <-time.After(joinTimeout):
		if l.Logger != nil {
			l.Logger.Warn("recording task stop() ran into timeout")
		}
		return model.Metadata{}, errJoinTimedOut
	}
}

func (l *Listener) teardownEngine(ctx context.Context, result *recording.Result) {
	if err := result.Engine.StopRecording(ctx); err != nil && l.Logger != nil {
		l.Logger.Error("stop_recording failed", "error", err)
	}
	if err := result.Engine.Shutdown(); err != nil && l.Logger != nil {
		l.Logger.Error("engine shutdown failed", "error", err)
	}
	l.Slot.Clear()
	l.Tray.SetRecording(false)
}

// transition is the state machine's single entry point, implementing
// spec.md §4.7's transition table. It is only ever called from the
// single goroutine running runOnce's event loop, so the state field
// needs no lock.
func (l *Listener) transition(ctx context.Context, platformID string, ev model.SessionEvent) {
	switch l.state.kind {
	case stateIdle:
		l.state = l.transitionIdle(ctx, platformID, ev)
	case stateRecording:
		l.state = l.transitionRecording(ctx, ev)
	case stateEndOfGame:
		l.state = l.transitionEndOfGame(ctx, ev)
	}

	if l.Logger != nil {
		l.Logger.Debug("game listener state", "state", l.state.kind.String())
	}
}

func (l *Listener) transitionIdle(ctx context.Context, platformID string, ev model.SessionEvent) listenerState {
	session := ev.Session
	if session == nil {
		return listenerState{kind: stateIdle}
	}
	if session.Phase != model.PhaseGameStart && session.Phase != model.PhaseInProgress {
		return listenerState{kind: stateIdle}
	}
	if l.Settings.OnlyRecordRanked && !session.Queue.IsRanked {
		return listenerState{kind: stateIdle}
	}

	matchID := model.MatchId{GameID: session.GameID, PlatformID: platformID}
	running := l.startRecording(ctx, matchID)
	return listenerState{kind: stateRecording, running: running}
}

func (l *Listener) transitionRecording(ctx context.Context, ev model.SessionEvent) listenerState {
	session := ev.Session
	if session == nil || !stopsRecording(session.Phase) {
		return l.state
	}

	if l.Logger != nil {
		l.Logger.Info("stopping recording due to session event phase", "phase", session.Phase)
	}

	metadata, err := l.stopRecording(ctx, l.state.running)
	if err != nil {
		if l.Logger != nil {
			l.Logger.Error("failed to stop recording", "error", err)
		}
		return listenerState{kind: stateIdle}
	}
	return listenerState{kind: stateEndOfGame, metadata: metadata}
}

func stopsRecording(phase model.GamePhase) bool {
	switch phase {
	case model.PhaseFailedToLaunch, model.PhaseReconnect, model.PhaseWaitingForStats, model.PhasePreEndOfGame:
		return true
	default:
		return false
	}
}

func (l *Listener) transitionEndOfGame(ctx context.Context, ev model.SessionEvent) listenerState {
	triggered := ev.EogStats != nil
	if session := ev.Session; session != nil {
		switch session.Phase {
		case model.PhaseEndOfGame, model.PhaseTerminatedInError, model.PhaseChampSelect, model.PhaseGameStart:
			triggered = true
		}
	}
	if !triggered {
		return l.state
	}

	if l.Logger != nil {
		l.Logger.Info("triggered game-data collection", "match_id", l.state.metadata.MatchID.String())
	}

	metadata := l.state.metadata
	util.SafeGo("metadata-finalize", logWriter{l.Logger}, func() { l.finalize(metadata) }, nil)

	return listenerState{kind: stateIdle}
}

// finalize is the detached metadata-finalize task (spec.md §4.7): it is
// never awaited by the state machine, so the previous game's stats can
// still be in flight under retry while the machine is already recording
// game N+1. It runs under util.SafeGo rather than a bare `go` statement,
// since nothing else supervises it — a panic here must not take down
// the listener that's already moved on to the next game.
func (l *Listener) finalize(metadata model.Metadata) {
	favorite := false
	if existing, err := sidecar.Load(metadata.OutputFilepath); err == nil && existing != nil {
		favorite = existing.Favorite()
	}

	gameMetadata, err := l.Collector.Collect(context.Background(), metadata.MatchID, metadata.IngameTimeRecStartOffset)
	if err != nil {
		if l.Logger != nil {
			l.Logger.Error("unable to process game data", "match_id", metadata.MatchID.String(), "error", err)
		}
		return
	}

	if err := sidecar.Save(metadata.OutputFilepath, sidecar.NewMetadata(gameMetadata, favorite)); err != nil {
		if l.Logger != nil {
			l.Logger.Error("writing game metadata to file", "error", err)
		}
		return
	}

	l.Sink.RecordingsChanged()
	l.Sink.MetadataChanged([]string{sidecar.PathFor(metadata.OutputFilepath)})
}

func unmarshalFrame(frame controlplane.Frame, out interface{}) error {
	return json.Unmarshal(frame.Data, out)
}

// logWriter adapts *slog.Logger to the io.Writer util.SafeGo logs
// recovered panics through; a nil *slog.Logger is a silent discard.
type logWriter struct {
	logger *slog.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	if w.logger != nil {
		w.logger.Error(string(p))
	}
	return len(p), nil
}
