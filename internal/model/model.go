// Package model holds the types shared across the coordinator's
// components: match identity, session/ingame events, and the metadata
// that ends up in a recording's sidecar file.
package model

import "fmt"

// MatchId identifies a single game uniquely across platforms.
type MatchId struct {
	GameID     int64  `json:"game_id"`
	PlatformID string `json:"platform_id"`
}

// String renders the canonical "{platform_id}_{game_id}" form used in
// filenames and logs.
func (m MatchId) String() string {
	return fmt.Sprintf("%s_%d", m.PlatformID, m.GameID)
}

// GamePhase is the session-phase value reported by the control plane.
type GamePhase string

const (
	PhaseNone                  GamePhase = "None"
	PhaseLobby                 GamePhase = "Lobby"
	PhaseMatchmaking           GamePhase = "Matchmaking"
	PhaseCheckedIntoTournament GamePhase = "CheckedIntoTournament"
	PhaseReadyCheck            GamePhase = "ReadyCheck"
	PhaseChampSelect           GamePhase = "ChampSelect"
	PhaseGameStart             GamePhase = "GameStart"
	PhaseFailedToLaunch        GamePhase = "FailedToLaunch"
	PhaseInProgress            GamePhase = "InProgress"
	PhaseReconnect             GamePhase = "Reconnect"
	PhaseWaitingForStats       GamePhase = "WaitingForStats"
	PhasePreEndOfGame          GamePhase = "PreEndOfGame"
	PhaseEndOfGame             GamePhase = "EndOfGame"
	PhaseTerminatedInError     GamePhase = "TerminatedInError"
)

// Queue describes the matchmaking queue a session belongs to.
type Queue struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsRanked bool   `json:"is_ranked"`
}

// SessionEvent is the tagged union delivered over the control plane's
// session-phase WebSocket topic. Exactly one of Session/EogStats is set.
type SessionEvent struct {
	Session  *SessionPhase `json:"session,omitempty"`
	EogStats *EogStats     `json:"eog_stats,omitempty"`
}

// SessionPhase is the "Session" variant of SessionEvent.
type SessionPhase struct {
	Phase  GamePhase `json:"phase"`
	Queue  Queue     `json:"queue"`
	GameID int64     `json:"game_id"`
}

// EogStats is the presence-only "end of game stats are ready" signal.
type EogStats struct{}

// IngameEventKind discriminates the IngameEvent tagged union.
type IngameEventKind string

const (
	EventChampionKill IngameEventKind = "ChampionKill"
	EventDragonKill   IngameEventKind = "DragonKill"
	EventBaronKill    IngameEventKind = "BaronKill"
	EventHeraldKill   IngameEventKind = "HeraldKill"
	EventVoidgrubKill IngameEventKind = "VoidgrubKill"
	EventInhibKilled  IngameEventKind = "InhibKilled"
	EventTurretKilled IngameEventKind = "TurretKilled"
	EventGameEnd      IngameEventKind = "GameEnd"
)

// DragonType enumerates the dragon flavors a DragonKill event may carry.
type DragonType string

const (
	DragonInfernal DragonType = "Infernal"
	DragonOcean    DragonType = "Ocean"
	DragonMountain DragonType = "Mountain"
	DragonCloud    DragonType = "Cloud"
	DragonHextech  DragonType = "Hextech"
	DragonChemtech DragonType = "Chemtech"
	DragonElder    DragonType = "Elder"
)

// GameResult is the outcome carried by a GameEnd event.
type GameResult string

const (
	ResultWin  GameResult = "Win"
	ResultLose GameResult = "Lose"
)

// IngameEvent is one timestamped event from the live game data stream.
// Fields not relevant to Kind are left zero.
type IngameEvent struct {
	Kind       IngameEventKind `json:"kind"`
	GameTime   float64         `json:"game_time"` // seconds since game start
	Killer     string          `json:"killer,omitempty"`
	Victim     string          `json:"victim,omitempty"`
	Assisters  []string        `json:"assisters,omitempty"`
	DragonType DragonType      `json:"dragon_type,omitempty"`
	Result     GameResult      `json:"result,omitempty"`
}

// Metadata is the in-flight descriptor handed from the Recording Task to
// the Game Listener the moment a recording stops.
type Metadata struct {
	MatchID                  MatchId `json:"match_id"`
	OutputFilepath           string  `json:"output_filepath"`
	IngameTimeRecStartOffset float64 `json:"ingame_time_rec_start_offset"`
}

// GameMetadata is the authoritative, fully-assembled metadata block the
// Metadata Collector (C8) produces from the control-plane REST API.
type GameMetadata struct {
	MatchID                  MatchId       `json:"match_id"`
	IngameTimeRecStartOffset float64       `json:"ingame_time_rec_start_offset"`
	Queue                    Queue         `json:"queue"`
	Player                   string        `json:"player"`
	ChampionName             string        `json:"champion_name"`
	Stats                    GameStats     `json:"stats"`
	ParticipantID            int           `json:"participant_id"`
	Events                   []IngameEvent `json:"events"`
}

// GameStats is the post-game summary block, taken from the recorded
// participant's stats in the match-history game payload.
type GameStats struct {
	Win bool `json:"win"`
}
