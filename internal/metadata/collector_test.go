package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lorec-gg/recorder-core/internal/controlplane"
	"github.com/lorec-gg/recorder-core/internal/model"
)

// routeFunc answers one fakeREST.Get call; call is how many times this
// path has been requested before (0-indexed), letting a test make the
// Nth attempt fail and a later one succeed.
type routeFunc func(call int) (body string, err error)

type fakeREST struct {
	mu     sync.Mutex
	routes map[string]routeFunc
	calls  map[string]int
}

func newFakeREST() *fakeREST {
	return &fakeREST{routes: map[string]routeFunc{}, calls: map[string]int{}}
}

func (f *fakeREST) on(path string, fn routeFunc) *fakeREST {
	f.routes[path] = fn
	return f
}

func (f *fakeREST) always(path, body string) *fakeREST {
	return f.on(path, func(int) (string, error) { return body, nil })
}

func (f *fakeREST) Get(ctx context.Context, path string, out interface{}) error {
	f.mu.Lock()
	n := f.calls[path]
	f.calls[path] = n + 1
	fn, ok := f.routes[path]
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("fakeREST: no route registered for %s", path)
	}
	body, err := fn(n)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), out)
}

func newTestCollector(rest restClient) *Collector {
	return &Collector{
		discoverCredentials: func() (controlplane.Credentials, error) { return controlplane.Credentials{}, nil },
		newRESTClient:       func(controlplane.Credentials) (restClient, error) { return rest, nil },
	}
}

const (
	samplePlayer = `{"gameName":"Faker","tagLine":"KR1","summonerId":7}`
	sampleGame   = `{"queueId":420,"participantIdentities":[{"participantId":1,"player":{"gameName":"Faker","tagLine":"KR1","summonerId":7}},{"participantId":2,"player":{"gameName":"Opponent","tagLine":"NA1","summonerId":9}}],"participants":[{"participantId":1,"championId":103,"stats":{"win":true}},{"participantId":2,"championId":64,"stats":{"win":false}}]}`
	emptyTimeline = `{"frames":[]}`
	championAhri  = `{"name":"Ahri"}`
)

func TestCollectAssemblesMetadataOnFirstAttempt(t *testing.T) {
	rest := newFakeREST().
		always(controlplane.PathCurrentSummoner, samplePlayer).
		always(controlplane.MatchByGameID(42), sampleGame).
		always(controlplane.TimelineByGameID(42), emptyTimeline).
		always(controlplane.ChampionByInventoryAndID(7, 103), championAhri).
		always(controlplane.QueueByID(420), `{"id":420,"name":"Ranked Solo","is_ranked":true}`)

	c := newTestCollector(rest)
	matchID := model.MatchId{GameID: 42, PlatformID: "NA1"}

	got, err := c.Collect(context.Background(), matchID, 12.5)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.Player != "Faker#KR1" {
		t.Errorf("got player %q", got.Player)
	}
	if got.ChampionName != "Ahri" {
		t.Errorf("got champion %q", got.ChampionName)
	}
	if !got.Stats.Win {
		t.Error("expected a win for the recorded participant")
	}
	if got.ParticipantID != 1 {
		t.Errorf("got participant id %d, want 1", got.ParticipantID)
	}
	if got.Queue.Name != "Ranked Solo" {
		t.Errorf("got queue %+v", got.Queue)
	}
	if got.IngameTimeRecStartOffset != 12.5 {
		t.Errorf("got offset %v", got.IngameTimeRecStartOffset)
	}
}

func TestCollectResolvesPracticeToolAndCustomQueuesWithoutARESTCall(t *testing.T) {
	for _, tc := range []struct {
		queueID  int64
		wantName string
	}{
		{-1, "Practicetool"},
		{0, "Custom Game"},
	} {
		game := fmt.Sprintf(`{"queueId":%d,"participantIdentities":[{"participantId":1,"player":{"gameName":"Faker","tagLine":"KR1"}}],"participants":[{"participantId":1,"championId":103,"stats":{"win":true}}]}`, tc.queueID)
		rest := newFakeREST().
			always(controlplane.PathCurrentSummoner, samplePlayer).
			always(controlplane.MatchByGameID(1), game).
			always(controlplane.TimelineByGameID(1), emptyTimeline).
			always(controlplane.ChampionByInventoryAndID(7, 103), championAhri)

		c := newTestCollector(rest)
		got, err := c.Collect(context.Background(), model.MatchId{GameID: 1}, 0)
		if err != nil {
			t.Fatalf("queue %d: Collect: %v", tc.queueID, err)
		}
		if got.Queue.Name != tc.wantName {
			t.Errorf("queue %d: got name %q, want %q", tc.queueID, got.Queue.Name, tc.wantName)
		}
	}
}

func TestCollectFailsWhenRecordedPlayerNotAmongParticipants(t *testing.T) {
	rest := newFakeREST().
		always(controlplane.PathCurrentSummoner, `{"gameName":"Stranger","tagLine":"NA1"}`).
		always(controlplane.MatchByGameID(1), sampleGame).
		always(controlplane.TimelineByGameID(1), emptyTimeline)

	c := newTestCollector(rest)
	if _, err := c.Collect(context.Background(), model.MatchId{GameID: 1}, 0); err == nil {
		t.Fatal("expected an error when the recorded player has no matching participant identity")
	}
}

func TestCollectTreatsChampionLookupFailureAsNonFatal(t *testing.T) {
	rest := newFakeREST().
		always(controlplane.PathCurrentSummoner, samplePlayer).
		always(controlplane.MatchByGameID(1), sampleGame).
		always(controlplane.TimelineByGameID(1), emptyTimeline).
		on(controlplane.ChampionByInventoryAndID(7, 103), func(int) (string, error) {
			return "", errors.New("inventory unavailable")
		})

	c := newTestCollector(rest)
	got, err := c.Collect(context.Background(), model.MatchId{GameID: 1}, 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.ChampionName != "" {
		t.Errorf("got champion name %q, want empty on lookup failure", got.ChampionName)
	}
}

func TestFetchWithRetrySucceedsOnceBothPiecesArrive(t *testing.T) {
	rest := newFakeREST().
		on(controlplane.PathCurrentSummoner, func(call int) (string, error) {
			if call == 0 {
				return "", errors.New("not ready")
			}
			return samplePlayer, nil
		}).
		always(controlplane.MatchByGameID(1), sampleGame).
		always(controlplane.TimelineByGameID(1), emptyTimeline)

	c := &Collector{}
	start := time.Now()
	player, game, _, err := c.fetchWithRetry(context.Background(), rest, model.MatchId{GameID: 1})
	if err != nil {
		t.Fatalf("fetchWithRetry: %v", err)
	}
	if elapsed := time.Since(start); elapsed < retryInterval {
		t.Errorf("expected fetchWithRetry to wait at least one retry interval, took %v", elapsed)
	}
	if player.GameName != "Faker" {
		t.Errorf("got player %+v", player)
	}
	if game.QueueID != 420 {
		t.Errorf("got game %+v", game)
	}
}

func TestFetchWithRetryKeepsWaitingForAMissingTimelineAfterPlayerGameSucceed(t *testing.T) {
	rest := newFakeREST().
		always(controlplane.PathCurrentSummoner, samplePlayer).
		always(controlplane.MatchByGameID(1), sampleGame).
		on(controlplane.TimelineByGameID(1), func(int) (string, error) {
			return "", errors.New("timeline not ready")
		})

	// A realistic run would burn through all 60 retryInterval sleeps
	// waiting on a timeline that never arrives; cancelling the context
	// exercises the same "still missing" accounting without the wait.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	c := &Collector{}
	_, _, _, err := c.fetchWithRetry(ctx, rest, model.MatchId{GameID: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestFetchWithRetryFailsWhenCancelledBeforePlayerGameEverSucceed(t *testing.T) {
	rest := newFakeREST().
		on(controlplane.PathCurrentSummoner, func(int) (string, error) { return "", errors.New("down") }).
		on(controlplane.MatchByGameID(1), func(int) (string, error) { return "", errors.New("down") }).
		always(controlplane.TimelineByGameID(1), emptyTimeline)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	c := &Collector{}
	_, _, _, err := c.fetchWithRetry(ctx, rest, model.MatchId{GameID: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestPlayerMatchesIgnoresSummonerID(t *testing.T) {
	a := wirePlayer{GameName: "Faker", TagLine: "KR1", SummonerID: 1}
	b := wirePlayer{GameName: "Faker", TagLine: "KR1", SummonerID: 2}
	if !a.matches(b) {
		t.Error("expected players with the same name/tag to match regardless of summoner id")
	}
}
