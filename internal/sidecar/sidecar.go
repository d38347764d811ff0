// Package sidecar reads and writes the per-recording metadata sidecar
// file (`<stem>.json`, next to `<stem>.mp4`): the crash-safety anchor
// written at recording start, and its eventual promotion to the
// authoritative metadata block once the control plane can be queried.
package sidecar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lorec-gg/recorder-core/internal/model"
)

// ErrDeferredNoFetch is returned by callers that read a Deferred sidecar
// without asking for it to be resolved.
var ErrDeferredNoFetch = errors.New("sidecar: deferred, no metadata")

// Kind discriminates the three MetadataFile variants. The on-disk JSON
// has no explicit tag field — the variant is inferred structurally, the
// same way spec.md describes it — but Kind is what callers branch on
// once a File has been loaded.
type Kind string

const (
	KindDeferred Kind = "deferred"
	KindNoData   Kind = "no_data"
	KindMetadata Kind = "metadata"
)

// File is the tagged union persisted as a recording's `.json` sidecar.
// Exactly one of Deferred/NoData/Metadata is non-nil.
type File struct {
	Deferred *Deferred `json:"deferred,omitempty"`
	NoData   *NoData   `json:"no_data,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Deferred is written immediately when a recording starts, before the
// control plane has been asked for authoritative metadata.
type Deferred struct {
	MatchID                  model.MatchId `json:"match_id"`
	IngameTimeRecStartOffset float64       `json:"ingame_time_rec_start_offset"`
	Favorite                 bool          `json:"favorite"`
}

// NoData marks an orphan video with no recoverable metadata (e.g. one
// dropped into the recordings folder by hand).
type NoData struct {
	Favorite bool `json:"favorite"`
}

// Metadata is the authoritative, fully-assembled sidecar content,
// produced by the Metadata Collector (C8).
type Metadata struct {
	MatchID                  model.MatchId       `json:"match_id"`
	IngameTimeRecStartOffset float64             `json:"ingame_time_rec_start_offset"`
	Queue                    model.Queue         `json:"queue"`
	Player                   string              `json:"player"`
	ChampionName             string              `json:"champion_name"`
	Stats                    model.GameStats     `json:"stats"`
	ParticipantID            int                 `json:"participant_id"`
	Events                   []model.IngameEvent `json:"events"`
	Favorite                 bool                `json:"favorite"`
}

// Kind reports which variant f holds.
func (f *File) Kind() Kind {
	switch {
	case f.Metadata != nil:
		return KindMetadata
	case f.Deferred != nil:
		return KindDeferred
	default:
		return KindNoData
	}
}

// NewDeferred builds a Deferred sidecar for a recording that has just
// started, per spec.md's "offset fidelity" invariant: the offset is
// captured once, from start_recording's success.
func NewDeferred(matchID model.MatchId, offset float64) *File {
	return &File{Deferred: &Deferred{MatchID: matchID, IngameTimeRecStartOffset: offset}}
}

// NewNoData builds a NoData sidecar for an orphan video discovered with
// no matching sidecar on disk.
func NewNoData() *File {
	return &File{NoData: &NoData{}}
}

// NewMetadata builds the authoritative Metadata variant, preserving any
// favorite flag already set on the sidecar being replaced.
func NewMetadata(gm model.GameMetadata, favorite bool) *File {
	return &File{Metadata: &Metadata{
		MatchID:                  gm.MatchID,
		IngameTimeRecStartOffset: gm.IngameTimeRecStartOffset,
		Queue:                    gm.Queue,
		Player:                   gm.Player,
		ChampionName:             gm.ChampionName,
		Stats:                    gm.Stats,
		ParticipantID:            gm.ParticipantID,
		Events:                   gm.Events,
		Favorite:                 favorite,
	}}
}

// Favorite returns the favorite flag regardless of variant.
func (f *File) Favorite() bool {
	switch {
	case f.Deferred != nil:
		return f.Deferred.Favorite
	case f.NoData != nil:
		return f.NoData.Favorite
	case f.Metadata != nil:
		return f.Metadata.Favorite
	}
	return false
}

// SetFavorite mutates only the favorite field, whichever variant f holds,
// per C9's toggle_favorite contract.
func (f *File) SetFavorite(v bool) {
	switch {
	case f.Deferred != nil:
		f.Deferred.Favorite = v
	case f.NoData != nil:
		f.NoData.Favorite = v
	case f.Metadata != nil:
		f.Metadata.Favorite = v
	}
}

// MatchID returns the match identity carried by Deferred or Metadata
// variants, or the zero value for NoData.
func (f *File) MatchID() model.MatchId {
	switch {
	case f.Deferred != nil:
		return f.Deferred.MatchID
	case f.Metadata != nil:
		return f.Metadata.MatchID
	}
	return model.MatchId{}
}

// PathFor returns the sidecar path for a given video path: the same
// stem with a .json extension.
func PathFor(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return videoPath[:len(videoPath)-len(ext)] + ".json"
}

// Load reads and parses the sidecar for videoPath. If the sidecar file
// does not exist, Load returns a fresh NoData{favorite:false} sidecar
// (not an error) — creating one on first inspection of an orphan video
// is the library manager's contract (§4.9), not this package's, so Load
// returns it without writing it; callers that want it persisted call Save.
func Load(videoPath string) (*File, error) {
	path := PathFor(videoPath)

	data, err := os.ReadFile(path) // #nosec G304 - path is derived from an enumerated recording
	if err != nil {
		if os.IsNotExist(err) {
			return NewNoData(), nil
		}
		return nil, fmt.Errorf("read sidecar: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sidecar %s: %w", path, err)
	}
	return &f, nil
}

// Save atomically writes f as the sidecar for videoPath (tempfile then
// rename, so a reader never observes a partially-written sidecar).
func Save(videoPath string, f *File) error {
	path := PathFor(videoPath)

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp sidecar: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename sidecar into place: %w", err)
	}
	return nil
}

// Remove deletes the sidecar for videoPath, if present.
func Remove(videoPath string) error {
	path := PathFor(videoPath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove sidecar: %w", err)
	}
	return nil
}
