// SPDX-License-Identifier: MIT

package ingame

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lorec-gg/recorder-core/internal/model"
)

func TestActiveGameFalseOnConnectionFailure(t *testing.T) {
	c := NewClient(WithBaseURL("https://127.0.0.1:1")) // nothing listens on port 1
	if c.ActiveGame(context.Background()) {
		t.Fatal("expected ActiveGame false when unreachable")
	}
}

func TestActiveGameTrueOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if !c.ActiveGame(context.Background()) {
		t.Fatal("expected ActiveGame true on 200")
	}
}

func TestAllGameDataDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AllGameData{
			GameData:     GameDataSummary{GameMode: "CLASSIC"},
			ActivePlayer: &ActivePlayer{SummonerName: "Foo"},
			AllPlayers: []Player{
				{SummonerName: "Foo", ChampionName: "Ahri"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	data, err := c.AllGameData(context.Background())
	if err != nil {
		t.Fatalf("AllGameData: %v", err)
	}
	if data.ActivePlayer.SummonerName != "Foo" {
		t.Errorf("got summoner %q, want Foo", data.ActivePlayer.SummonerName)
	}
	if data.AllPlayers[0].ChampionName != "Ahri" {
		t.Errorf("got champion %q, want Ahri", data.AllPlayers[0].ChampionName)
	}
}

func TestEventStreamOnlyReturnsNewEvents(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var events []rawEvent
		if calls == 1 {
			events = []rawEvent{
				{EventID: 0, EventName: "GameEnd", EventTime: 0, Result: "Win"},
			}
		} else {
			events = []rawEvent{
				{EventID: 0, EventName: "GameEnd", EventTime: 0, Result: "Win"},
				{EventID: 1, EventName: "ChampionKill", EventTime: 12.5, KillerName: "Foo", VictimName: "Bar"},
			}
		}
		_ = json.NewEncoder(w).Encode(eventFeed{Events: events})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	stream := NewEventStream(c)

	first, err := stream.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(first) != 1 || first[0].Kind != model.EventGameEnd {
		t.Fatalf("got %+v, want one GameEnd event", first)
	}

	second, err := stream.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(second) != 1 || second[0].Kind != model.EventChampionKill {
		t.Fatalf("got %+v, want one ChampionKill event", second)
	}
	if second[0].Killer != "Foo" || second[0].Victim != "Bar" {
		t.Errorf("got killer/victim %q/%q, want Foo/Bar", second[0].Killer, second[0].Victim)
	}
}

func TestTranslateEventUnknownNameIgnored(t *testing.T) {
	_, ok := translateEvent(rawEvent{EventName: "SomethingNew"})
	if ok {
		t.Fatal("expected unknown event name to be ignored")
	}
}

func TestWaitForActiveGameReturnsImmediatelyWhenAlreadyActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := WaitForActiveGame(ctx, c); err != nil {
		t.Fatalf("WaitForActiveGame: %v", err)
	}
}

func TestWaitForActiveGameRespectsCancellation(t *testing.T) {
	c := NewClient(WithBaseURL("https://127.0.0.1:1"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := WaitForActiveGame(ctx, c)
	if err == nil {
		t.Fatal("expected context deadline error")
	}
}
