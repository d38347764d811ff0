// SPDX-License-Identifier: MIT

package listener

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lorec-gg/recorder-core/internal/config"
	"github.com/lorec-gg/recorder-core/internal/controlplane"
	"github.com/lorec-gg/recorder-core/internal/eventsink"
	"github.com/lorec-gg/recorder-core/internal/model"
	"github.com/lorec-gg/recorder-core/internal/recording"
)

// fakeRecorder lets tests drive transitionIdle/transitionRecording
// without a real window probe or engine subprocess.
type fakeRecorder struct {
	matchID model.MatchId
	result  *recording.Result
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, matchID model.MatchId) (*recording.Result, error) {
	f.matchID = matchID
	<-ctx.Done()
	return f.result, f.err
}

func newTestListener(rec *fakeRecorder) *Listener {
	return &Listener{
		Settings: config.DefaultSettings(),
		Tray:     eventsink.NoopTray{},
		Sink:     eventsink.NoopSink{},
		Slot:     &recording.Slot{},
		newRecorder: func() recorder {
			return rec
		},
	}
}

func rankedSession(phase model.GamePhase) model.SessionEvent {
	return model.SessionEvent{Session: &model.SessionPhase{
		Phase:  phase,
		Queue:  model.Queue{ID: 420, Name: "Ranked Solo", IsRanked: true},
		GameID: 42,
	}}
}

func TestTransitionIdleSpawnsRecordingOnRankedGameStart(t *testing.T) {
	rec := &fakeRecorder{err: context.Canceled}
	l := newTestListener(rec)

	l.transition(context.Background(), "NA1", rankedSession(model.PhaseGameStart))

	if l.state.kind != stateRecording {
		t.Fatalf("got state %s, want Recording", l.state.kind)
	}
	l.state.running.cancel()
}

func TestTransitionIdleIgnoresUnrankedWhenOnlyRankedRequired(t *testing.T) {
	rec := &fakeRecorder{err: context.Canceled}
	l := newTestListener(rec)
	l.Settings.OnlyRecordRanked = true

	ev := model.SessionEvent{Session: &model.SessionPhase{
		Phase:  model.PhaseInProgress,
		Queue:  model.Queue{ID: 0, IsRanked: false},
		GameID: 7,
	}}
	l.transition(context.Background(), "NA1", ev)

	if l.state.kind != stateIdle {
		t.Fatalf("got state %s, want Idle (P7 ranked gate)", l.state.kind)
	}
}

func TestTransitionIdleIgnoresIrrelevantPhase(t *testing.T) {
	rec := &fakeRecorder{}
	l := newTestListener(rec)

	l.transition(context.Background(), "NA1", rankedSession(model.PhaseChampSelect))

	if l.state.kind != stateIdle {
		t.Fatalf("got state %s, want Idle", l.state.kind)
	}
}

func TestStopsRecordingPhases(t *testing.T) {
	stopping := []model.GamePhase{model.PhaseFailedToLaunch, model.PhaseReconnect, model.PhaseWaitingForStats, model.PhasePreEndOfGame}
	for _, p := range stopping {
		if !stopsRecording(p) {
			t.Errorf("phase %s should trigger a stop", p)
		}
	}
	nonStopping := []model.GamePhase{model.PhaseInProgress, model.PhaseGameStart, model.PhaseEndOfGame, model.PhaseChampSelect}
	for _, p := range nonStopping {
		if stopsRecording(p) {
			t.Errorf("phase %s should not trigger a stop", p)
		}
	}
}

func TestTransitionRecordingReturnsToIdleWhenTaskFails(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("window never appeared")}
	l := newTestListener(rec)
	l.state = listenerState{kind: stateRecording, running: l.startRecording(context.Background(), model.MatchId{GameID: 1})}

	l.transition(context.Background(), "NA1", rankedSession(model.PhaseWaitingForStats))

	if l.state.kind != stateIdle {
		t.Fatalf("got state %s, want Idle after a failed stop", l.state.kind)
	}
}

func TestTransitionRecordingIgnoresUnrelatedPhase(t *testing.T) {
	rec := &fakeRecorder{}
	l := newTestListener(rec)
	running := l.startRecording(context.Background(), model.MatchId{GameID: 1})
	l.state = listenerState{kind: stateRecording, running: running}

	l.transition(context.Background(), "NA1", rankedSession(model.PhaseInProgress))

	if l.state.kind != stateRecording {
		t.Fatalf("got state %s, want still Recording", l.state.kind)
	}
	running.cancel()
	<-running.done
}

// fakeCollector lets EndOfGame→Idle's detached finalize task be tested
// without a real control-plane round trip.
type fakeCollector struct {
	mu       sync.Mutex
	called   bool
	metadata model.GameMetadata
	err      error
}

func (f *fakeCollector) Collect(ctx context.Context, matchID model.MatchId, offset float64) (model.GameMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = true
	return f.metadata, f.err
}

func TestTransitionEndOfGameTriggersOnEogStatsBlock(t *testing.T) {
	dir := t.TempDir()
	videoPath := dir + "/game.mp4"
	collector := &fakeCollector{}
	l := newTestListener(&fakeRecorder{})
	l.Collector = collector
	l.state = listenerState{kind: stateEndOfGame, metadata: model.Metadata{
		MatchID:        model.MatchId{GameID: 42, PlatformID: "NA1"},
		OutputFilepath: videoPath,
	}}

	l.transition(context.Background(), "NA1", model.SessionEvent{EogStats: &model.EogStats{}})

	if l.state.kind != stateIdle {
		t.Fatalf("got state %s, want Idle immediately (finalize task is detached)", l.state.kind)
	}

	deadline := time.After(time.Second)
	for {
		collector.mu.Lock()
		called := collector.called
		collector.mu.Unlock()
		if called {
			break
		}
		select {
		case <-deadline:
			t.Fatal("finalize task never called the metadata collector")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestTransitionEndOfGameTriggersOnMatchingSessionPhases(t *testing.T) {
	for _, phase := range []model.GamePhase{model.PhaseEndOfGame, model.PhaseTerminatedInError, model.PhaseChampSelect, model.PhaseGameStart} {
		collector := &fakeCollector{}
		l := newTestListener(&fakeRecorder{})
		l.Collector = collector
		l.state = listenerState{kind: stateEndOfGame, metadata: model.Metadata{OutputFilepath: t.TempDir() + "/g.mp4"}}

		l.transition(context.Background(), "NA1", rankedSession(phase))

		if l.state.kind != stateIdle {
			t.Errorf("phase %s: got state %s, want Idle", phase, l.state.kind)
		}
	}
}

func TestTransitionEndOfGameIgnoresUnrelatedPhase(t *testing.T) {
	l := newTestListener(&fakeRecorder{})
	l.state = listenerState{kind: stateEndOfGame, metadata: model.Metadata{OutputFilepath: "x.mp4"}}

	l.transition(context.Background(), "NA1", rankedSession(model.PhaseInProgress))

	if l.state.kind != stateEndOfGame {
		t.Fatalf("got state %s, want still EndOfGame", l.state.kind)
	}
}

func TestUnmarshalFrameDecodesData(t *testing.T) {
	frame := controlplane.Frame{EventType: "Update", Data: json.RawMessage(`{"phase":"InProgress","game_id":9}`)}
	var phase model.SessionPhase
	if err := unmarshalFrame(frame, &phase); err != nil {
		t.Fatalf("unmarshalFrame: %v", err)
	}
	if phase.Phase != model.PhaseInProgress || phase.GameID != 9 {
		t.Errorf("got %+v", phase)
	}
}

func TestFetchPlatformIDDecodesBareString(t *testing.T) {
	rc := fakeREST{response: `"NA1"`}
	id, err := fetchPlatformID(context.Background(), rc)
	if err != nil {
		t.Fatalf("fetchPlatformID: %v", err)
	}
	if id != "NA1" {
		t.Errorf("got %q, want NA1", id)
	}
}

type fakeREST struct {
	response string
	err      error
}

func (f fakeREST) Get(ctx context.Context, path string, out interface{}) error {
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), out)
}

func TestHandleSessionFrameSkipsNonUpdateEvents(t *testing.T) {
	l := newTestListener(&fakeRecorder{})
	frame := controlplane.Frame{EventType: "Create", Data: json.RawMessage(`{"phase":"InProgress"}`)}

	l.handleSessionFrame(context.Background(), "NA1", frame)

	if l.state.kind != stateIdle {
		t.Fatalf("got state %s, want unchanged Idle", l.state.kind)
	}
}

func TestHandleEogFrameSkipsNonUpdateEvents(t *testing.T) {
	l := newTestListener(&fakeRecorder{})
	l.Collector = &fakeCollector{}
	l.state = listenerState{kind: stateEndOfGame, metadata: model.Metadata{OutputFilepath: "x.mp4"}}
	frame := controlplane.Frame{EventType: "Delete"}

	l.handleEogFrame(context.Background(), "NA1", frame)

	if l.state.kind != stateEndOfGame {
		t.Fatalf("got state %s, want unchanged EndOfGame", l.state.kind)
	}
}
