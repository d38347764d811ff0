// SPDX-License-Identifier: MIT

// Package ingame polls the game process's own local HTTP API (C3), the
// source of ingame-clock time and kill/objective events while a match is
// in progress. Unlike the control-plane client, this endpoint only
// exists while a game is actually being played, so every call here
// treats a connection failure as "not active yet" rather than an error.
package ingame

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lorec-gg/recorder-core/internal/model"
)

// DefaultBaseURL is the fixed local address the game client's Live
// Client Data API listens on.
const DefaultBaseURL = "https://127.0.0.1:2999"

// ProbeTimeout bounds the active_game() probe per spec.md §4.3.
const ProbeTimeout = 250 * time.Millisecond

// PollInterval is the busy-wait cadence while waiting for a game to
// start, per spec.md §4.3.
const PollInterval = 500 * time.Millisecond

// Client polls the Live Client Data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides DefaultBaseURL, mainly for tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient builds a client. The Live Client Data API serves a
// self-signed certificate with no discoverable chain (unlike the
// control-plane's), so the default transport skips verification for
// this one localhost-only endpoint.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: ProbeTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 - fixed localhost loopback endpoint, no network path to spoof
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ingame GET %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ActiveGame reports whether a game is currently in progress. Any
// connection failure (API not listening yet, TLS handshake refused,
// timeout) is reported as false, not an error — spec.md §4.3 treats
// "can't connect" as "not active yet".
func (c *Client) ActiveGame(ctx context.Context) bool {
	err := c.get(ctx, "/liveclientdata/activeplayername", nil)
	return err == nil
}

// IsSpectator reports whether the active game is being spectated rather
// than played, via gameData.isSpectating in /liveclientdata/allgamedata.
// Connection failure is treated as "not a spectator game" so
// callers don't abort a real game session over a transient probe
// failure.
func (c *Client) IsSpectator(ctx context.Context) bool {
	var data AllGameData
	if err := c.get(ctx, "/liveclientdata/allgamedata", &data); err != nil {
		return false
	}
	return data.GameData.IsSpectating
}

// AllGameData is the game mode and per-player roster snapshot.
type AllGameData struct {
	GameData     GameDataSummary `json:"gameData"`
	ActivePlayer *ActivePlayer   `json:"activePlayer"`
	AllPlayers   []Player        `json:"allPlayers"`
}

// GameDataSummary carries the game mode and spectator flag.
type GameDataSummary struct {
	GameMode     string `json:"gameMode"`
	IsSpectating bool   `json:"isSpectating"`
}

// ActivePlayer identifies the local player.
type ActivePlayer struct {
	SummonerName string `json:"summonerName"`
}

// Player is one roster entry.
type Player struct {
	SummonerName string `json:"summonerName"`
	ChampionName string `json:"championName"`
	Team         string `json:"team"`
}

// AllGameData fetches the full game-data snapshot used at recording
// start to resolve the local player's champion and game mode.
func (c *Client) AllGameData(ctx context.Context) (*AllGameData, error) {
	var data AllGameData
	if err := c.get(ctx, "/liveclientdata/allgamedata", &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GameStats carries the authoritative ingame clock.
type GameStats struct {
	GameTime float64 `json:"gameTime"`
}

// GameStats fetches the current ingame clock, in seconds since game
// start.
func (c *Client) GameStats(ctx context.Context) (GameStats, error) {
	var stats GameStats
	if err := c.get(ctx, "/liveclientdata/gamestats", &stats); err != nil {
		return GameStats{}, err
	}
	return stats, nil
}

// WaitForActiveGame busy-waits on ActiveGame at PollInterval until a
// game is active or ctx is cancelled, per spec.md §4.3.
func WaitForActiveGame(ctx context.Context, c *Client) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	if c.ActiveGame(ctx) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.ActiveGame(ctx) {
				return nil
			}
		}
	}
}

// rawEvent is the wire shape of one event in the /eventdata feed.
type rawEvent struct {
	EventID    int      `json:"EventID"`
	EventName  string   `json:"EventName"`
	EventTime  float64  `json:"EventTime"`
	KillerName string   `json:"KillerName"`
	VictimName string   `json:"VictimName"`
	Assisters  []string `json:"Assisters"`
	DragonType string   `json:"DragonType"`
	Result     string   `json:"Result"`
}

type eventFeed struct {
	Events []rawEvent `json:"Events"`
}

// EventStream pulls new events from the /liveclientdata/eventdata feed,
// translating the cumulative event list the API returns into the
// incremental model.IngameEvent values the rest of the coordinator
// consumes.
type EventStream struct {
	client   *Client
	lastSeen int
}

// NewEventStream starts an EventStream reading from c.
func NewEventStream(c *Client) *EventStream {
	return &EventStream{client: c, lastSeen: -1}
}

// Poll fetches the event feed and returns any events newer than the
// last call, translated to model.IngameEvent. The feed this API exposes
// is cumulative (every event since game start), so Poll tracks the
// highest EventID already delivered and only returns the remainder.
func (s *EventStream) Poll(ctx context.Context) ([]model.IngameEvent, error) {
	var feed eventFeed
	if err := s.client.get(ctx, "/liveclientdata/eventdata", &feed); err != nil {
		return nil, err
	}

	var out []model.IngameEvent
	for _, e := range feed.Events {
		if e.EventID <= s.lastSeen {
			continue
		}
		s.lastSeen = e.EventID

		translated, ok := translateEvent(e)
		if !ok {
			continue
		}
		out = append(out, translated)
	}
	return out, nil
}

func translateEvent(e rawEvent) (model.IngameEvent, bool) {
	ev := model.IngameEvent{GameTime: e.EventTime}

	switch e.EventName {
	case "ChampionKill":
		ev.Kind = model.EventChampionKill
		ev.Killer = e.KillerName
		ev.Victim = e.VictimName
		ev.Assisters = e.Assisters
	case "DragonKill":
		ev.Kind = model.EventDragonKill
		ev.DragonType = model.DragonType(e.DragonType)
	case "BaronKill":
		ev.Kind = model.EventBaronKill
	case "HeraldKill":
		ev.Kind = model.EventHeraldKill
	case "VoidgrubKill":
		ev.Kind = model.EventVoidgrubKill
	case "InhibKilled":
		ev.Kind = model.EventInhibKilled
	case "TurretKilled":
		ev.Kind = model.EventTurretKilled
	case "GameEnd":
		ev.Kind = model.EventGameEnd
		ev.Result = model.GameResult(e.Result)
	default:
		return model.IngameEvent{}, false
	}
	return ev, true
}
