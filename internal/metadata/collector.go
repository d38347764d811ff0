package metadata

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lorec-gg/recorder-core/internal/controlplane"
	"github.com/lorec-gg/recorder-core/internal/model"
	"golang.org/x/sync/errgroup"
)

// maxAttempts and retryInterval bound process_data_with_retry's loop:
// 60 attempts one second apart, 60 s total (spec.md §4.8, §9).
const (
	maxAttempts   = 60
	retryInterval = 1 * time.Second
)

var errMetadataUnavailable = errors.New("metadata: summoner/match history never became available")

// restClient is the subset of *controlplane.Client the collector needs,
// narrowed to an interface so tests can substitute an httptest.Server
// fake without a real launcher.
type restClient interface {
	Get(ctx context.Context, path string, out interface{}) error
}

// Collector implements the listener.MetadataCollector contract: turn a
// finished match ID into the authoritative model.GameMetadata. It
// rediscovers launcher credentials on every call rather than holding a
// single REST client for its lifetime, since a detached finalize task
// can easily outlive the session that started it.
type Collector struct {
	Logger *slog.Logger

	discoverCredentials func() (controlplane.Credentials, error)
	newRESTClient       func(controlplane.Credentials) (restClient, error)
}

// NewCollector builds a Collector wired to the real launcher.
func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{
		Logger:              logger,
		discoverCredentials: controlplane.Discover,
		newRESTClient: func(creds controlplane.Credentials) (restClient, error) {
			return controlplane.NewClient(creds.RESTCredentials())
		},
	}
}

// Collect implements process_data_with_retry (spec.md §4.8): poll the
// control plane until current-summoner, the match, and its timeline are
// available, then assemble the GameMetadata the recorded player
// experienced. Favorite carry-forward is the caller's concern — this
// never reads or writes a sidecar.
func (c *Collector) Collect(ctx context.Context, matchID model.MatchId, offset float64) (model.GameMetadata, error) {
	creds, err := c.discoverCredentials()
	if err != nil {
		return model.GameMetadata{}, err
	}
	rest, err := c.newRESTClient(creds)
	if err != nil {
		return model.GameMetadata{}, err
	}

	player, game, timeline, err := c.fetchWithRetry(ctx, rest, matchID)
	if err != nil {
		return model.GameMetadata{}, err
	}

	identity, ok := findIdentity(game.ParticipantIdentities, player)
	if !ok {
		return model.GameMetadata{}, errors.New("metadata: recorded player not found among match participants")
	}
	participant, ok := findParticipant(game.Participants, identity.ParticipantID)
	if !ok {
		return model.GameMetadata{}, errors.New("metadata: recorded player's participant entry missing from match")
	}

	queue, err := c.resolveQueue(ctx, rest, game.QueueID)
	if err != nil {
		return model.GameMetadata{}, err
	}

	championName, err := c.fetchChampionName(ctx, rest, player.SummonerID, participant.ChampionID)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("champion name lookup failed", "champion_id", participant.ChampionID, "error", err)
		}
	}

	names := participantNames(game.ParticipantIdentities)
	events := FlattenTimeline(timeline, names)

	return model.GameMetadata{
		MatchID:                  matchID,
		IngameTimeRecStartOffset: offset,
		Queue:                    queue,
		Player:                   playerName(player),
		ChampionName:             championName,
		Stats:                    model.GameStats{Win: participant.Stats.Win},
		ParticipantID:            identity.ParticipantID,
		Events:                   events,
	}, nil
}

// fetchWithRetry is process_data_with_retry's loop (spec.md §4.8 step
// 1-2): up to maxAttempts, one per second, cancellable. Each attempt
// fetches current-summoner and the match in parallel, and the timeline
// separately; once a fetch succeeds its result is kept even if a later
// attempt's fetch for the OTHER piece still fails. The loop exits as
// soon as both the (summoner, match) pair and the timeline have each
// been obtained at least once; after exhausting every attempt, a
// missing timeline is tolerated (its zero value is an empty Frames
// slice) but a missing (summoner, match) pair fails the whole collect.
func (c *Collector) fetchWithRetry(ctx context.Context, rest restClient, matchID model.MatchId) (wirePlayer, wireGame, wireTimeline, error) {
	var (
		player         wirePlayer
		game           wireGame
		timeline       wireTimeline
		havePlayerGame bool
		haveTimeline   bool
	)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if !havePlayerGame {
			if p, g, err := fetchPlayerAndGame(ctx, rest, matchID); err == nil {
				player, game, havePlayerGame = p, g, true
			} else if c.Logger != nil {
				c.Logger.Debug("metadata retry: summoner/match fetch failed", "attempt", attempt, "error", err)
			}
		}
		if !haveTimeline {
			if tl, err := fetchTimeline(ctx, rest, matchID); err == nil {
				timeline, haveTimeline = tl, true
			} else if c.Logger != nil {
				c.Logger.Debug("metadata retry: timeline fetch failed", "attempt", attempt, "error", err)
			}
		}
		if havePlayerGame && haveTimeline {
			return player, game, timeline, nil
		}

		select {
		case <-ctx.Done():
			return wirePlayer{}, wireGame{}, wireTimeline{}, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	if !havePlayerGame {
		return wirePlayer{}, wireGame{}, wireTimeline{}, errMetadataUnavailable
	}
	return player, game, timeline, nil
}

func fetchPlayerAndGame(ctx context.Context, rest restClient, matchID model.MatchId) (wirePlayer, wireGame, error) {
	var player wirePlayer
	var game wireGame

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rest.Get(gctx, controlplane.PathCurrentSummoner, &player) })
	g.Go(func() error { return rest.Get(gctx, controlplane.MatchByGameID(matchID.GameID), &game) })
	if err := g.Wait(); err != nil {
		return wirePlayer{}, wireGame{}, err
	}
	return player, game, nil
}

func fetchTimeline(ctx context.Context, rest restClient, matchID model.MatchId) (wireTimeline, error) {
	var timeline wireTimeline
	if err := rest.Get(ctx, controlplane.TimelineByGameID(matchID.GameID), &timeline); err != nil {
		return wireTimeline{}, err
	}
	return timeline, nil
}

// resolveQueue mirrors the original's synthetic queues for the two IDs
// the LCU never has queue metadata for: -1 is the practice tool, 0 is a
// custom game. Any other ID is looked up through the real queues API.
func (c *Collector) resolveQueue(ctx context.Context, rest restClient, queueID int64) (model.Queue, error) {
	switch queueID {
	case -1:
		return model.Queue{ID: -1, Name: "Practicetool", IsRanked: false}, nil
	case 0:
		return model.Queue{ID: 0, Name: "Custom Game", IsRanked: false}, nil
	}

	var queue model.Queue
	if err := rest.Get(ctx, controlplane.QueueByID(queueID), &queue); err != nil {
		return model.Queue{}, err
	}
	return queue, nil
}

func (c *Collector) fetchChampionName(ctx context.Context, rest restClient, summonerID, championID int64) (string, error) {
	var champ wireChampion
	if err := rest.Get(ctx, controlplane.ChampionByInventoryAndID(summonerID, championID), &champ); err != nil {
		return "", err
	}
	return champ.Name, nil
}
