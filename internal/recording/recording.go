// SPDX-License-Identifier: MIT

// Package recording implements the Recording Task (C6): the one
// record(match_id, cancel) operation that probes the game window,
// configures and drives the Recorder Engine, and hands a Deferred
// sidecar and in-flight Metadata back to the Game Listener. Every step
// is cancellable; cancellation before the engine starts recording
// leaves no trace on disk, cancellation after may leave a short video
// with a Deferred sidecar — both are valid end states for the
// Recordings Library Manager to discover later.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/lorec-gg/recorder-core/internal/config"
	"github.com/lorec-gg/recorder-core/internal/engine"
	"github.com/lorec-gg/recorder-core/internal/eventsink"
	"github.com/lorec-gg/recorder-core/internal/ingame"
	"github.com/lorec-gg/recorder-core/internal/model"
	"github.com/lorec-gg/recorder-core/internal/sidecar"
	"github.com/lorec-gg/recorder-core/internal/util"
	"github.com/lorec-gg/recorder-core/internal/winprobe"
)

// windowProbeInterval and windowProbeAttempts bound the window probe to
// 15s total (spec.md §4.6 step 1: "up to 15 s (30 x 500 ms)").
const (
	windowProbeInterval = 500 * time.Millisecond
	windowProbeAttempts = 30

	clientSizeProbeTimeout  = 15 * time.Second
	clientSizeProbeInterval = 500 * time.Millisecond
)

// ErrWindowNotFound is returned when the game window never appeared
// within the probe window.
var ErrWindowNotFound = errors.New("recording: game window not found within probe window")

// ErrClientSizeUnavailable is returned when the window's client area
// never reported a non-degenerate size within the probe window.
var ErrClientSizeUnavailable = errors.New("recording: client size never became usable within probe window")

// ErrSpectatorGame is returned when the ingame API reports the local
// session is a spectated game rather than one the player is in.
var ErrSpectatorGame = errors.New("recording: spectator games are not recorded")

// windowProber is the indirection onto winprobe behind Task.window, so
// tests can substitute a fake window without touching real Win32 state.
// NewTask sets it to realWindowProber.
type windowProber interface {
	FindWindow() (winprobe.Handle, error)
	ClientSize(winprobe.Handle) (winprobe.Size, error)
}

type realWindowProber struct{}

func (realWindowProber) FindWindow() (winprobe.Handle, error) { return winprobe.FindWindow() }
func (realWindowProber) ClientSize(h winprobe.Handle) (winprobe.Size, error) {
	return winprobe.ClientSize(h)
}

// Task runs one Recording Task invocation end to end.
type Task struct {
	EnginePath string
	Settings   *config.Settings
	Ingame     *ingame.Client
	Tray       eventsink.TrayIndicator
	Slot       *Slot
	Logger     *slog.Logger

	// Tracker, if set, registers each spawned engine child process so a
	// leak check can confirm it was reaped — the "Recorder Engine child
	// process" case util.ResourceTracker exists to catch in a coordinator
	// meant to run unattended for days at a time.
	Tracker *util.ResourceTracker

	window windowProber
}

// NewTask builds a Task wired to the real game window and Recorder
// Engine.
func NewTask(enginePath string, settings *config.Settings, ingameClient *ingame.Client, tray eventsink.TrayIndicator, slot *Slot, logger *slog.Logger) *Task {
	return &Task{
		EnginePath: enginePath,
		Settings:   settings,
		Ingame:     ingameClient,
		Tray:       tray,
		Slot:       slot,
		Logger:     logger,
		window:     realWindowProber{},
	}
}

// Result is handed from the Recording Task to the Game Listener the
// moment a recording is underway (spec.md §4.6 step 9).
type Result struct {
	Engine   *engine.Driver
	Metadata model.Metadata
}

// Record runs the full recording sequence for matchID, returning the
// live engine handle and in-flight Metadata once recording has started
// and a Deferred sidecar has been written. Every step observes ctx;
// cancellation at any point before step 5 (the CurrentlyRecording mark)
// leaves no file on disk.
func (t *Task) Record(ctx context.Context, matchID model.MatchId) (*Result, error) {
	handle, err := t.probeWindow(ctx)
	if err != nil {
		return nil, err
	}

	size, err := t.probeClientSize(ctx, handle)
	if err != nil {
		return nil, err
	}

	outputPath := t.outputPath()
	settings := t.buildEngineSettings(size, outputPath)

	driverOpts := []engine.DriverOption{engine.WithLogger(t.Logger)}
	if t.Tracker != nil {
		driverOpts = append(driverOpts, engine.WithResourceTracker(t.Tracker, matchID.String()))
	}

	drv, err := engine.NewDriver(ctx, t.EnginePath, driverOpts...)
	if err != nil {
		return nil, fmt.Errorf("recording: spawn engine: %w", err)
	}

	if err := drv.Configure(settings); err != nil {
		_ = drv.Shutdown()
		return nil, fmt.Errorf("recording: configure engine: %w", err)
	}

	if err := ingame.WaitForActiveGame(ctx, t.Ingame); err != nil {
		_ = drv.Shutdown()
		return nil, fmt.Errorf("recording: wait for active game: %w", err)
	}

	if t.Ingame.IsSpectator(ctx) {
		_ = drv.Shutdown()
		return nil, ErrSpectatorGame
	}

	t.Slot.Set(outputPath)
	t.Tray.SetRecording(true)

	if err := drv.StartRecording(ctx); err != nil {
		t.Tray.SetRecording(false)
		t.Slot.Clear()
		_ = drv.Shutdown()
		return nil, fmt.Errorf("recording: start_recording: %w", err)
	}

	offset := t.captureStartOffset(ctx)

	meta := model.Metadata{
		MatchID:                  matchID,
		OutputFilepath:           outputPath,
		IngameTimeRecStartOffset: offset,
	}

	if err := sidecar.Save(outputPath, sidecar.NewDeferred(matchID, offset)); err != nil && t.Logger != nil {
		t.Logger.Warn("write deferred sidecar", "path", outputPath, "error", err)
	}

	return &Result{Engine: drv, Metadata: meta}, nil
}

// probeWindow polls for the game window for up to windowProbeAttempts x
// windowProbeInterval (15s), observing ctx throughout.
func (t *Task) probeWindow(ctx context.Context) (winprobe.Handle, error) {
	ticker := time.NewTicker(windowProbeInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < windowProbeAttempts; attempt++ {
		h, err := t.window.FindWindow()
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, winprobe.ErrNotFound) {
			return 0, fmt.Errorf("recording: probe window: %w", err)
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
	return 0, ErrWindowNotFound
}

// probeClientSize polls the window's client rect until it reports a
// non-degenerate size or clientSizeProbeTimeout elapses.
func (t *Task) probeClientSize(ctx context.Context, h winprobe.Handle) (winprobe.Size, error) {
	deadline := time.Now().Add(clientSizeProbeTimeout)
	ticker := time.NewTicker(clientSizeProbeInterval)
	defer ticker.Stop()

	for {
		size, err := t.window.ClientSize(h)
		if err == nil {
			return size, nil
		}
		if !errors.Is(err, winprobe.ErrNotFound) {
			return winprobe.Size{}, fmt.Errorf("recording: probe client size: %w", err)
		}
		if time.Now().After(deadline) {
			return winprobe.Size{}, ErrClientSizeUnavailable
		}

		select {
		case <-ctx.Done():
			return winprobe.Size{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// outputPath formats the current local time with the user's
// strftime-style filename pattern, appends .mp4 if missing, and joins
// it under the configured recordings folder (spec.md §4.4's "Filename
// selection").
func (t *Task) outputPath() string {
	name := strftime.Format(t.Settings.FilenameFormat, time.Now())
	if !strings.HasSuffix(strings.ToLower(name), ".mp4") {
		name += ".mp4"
	}
	return filepath.Join(t.Settings.RecordingsFolder, name)
}

// buildEngineSettings assembles the Recorder Engine configure() record
// per spec.md §4.4, resolving the output resolution from the user's
// explicit setting or, absent one, the fixed aspect-ratio table (P8).
func (t *Task) buildEngineSettings(size winprobe.Size, outputPath string) engine.Settings {
	outputRes := engine.Resolution{Width: t.Settings.OutputResolution.Width, Height: t.Settings.OutputResolution.Height}
	if t.Settings.OutputResolution.IsZero() {
		outputRes = engine.ClosestResolution(size.Width, size.Height)
	}

	return engine.Settings{
		WindowTitle:      winprobe.Title,
		WindowClass:      winprobe.Class,
		WindowProcess:    winprobe.Process,
		InputResolution:  engine.Resolution{Width: size.Width, Height: size.Height},
		OutputResolution: outputRes,
		Framerate:        engine.Framerate{Num: t.Settings.Framerate.Num, Den: t.Settings.Framerate.Den},
		RateControl:      engine.CQP(t.Settings.EncodingQuality),
		AudioSource:      t.Settings.AudioSource,
		OutputPath:       outputPath,
	}
}

// captureStartOffset reads the ingame clock right after start_recording
// succeeds, defaulting to 0 on failure — "the only place this value can
// be sourced" (spec.md §4.6 step 7).
func (t *Task) captureStartOffset(ctx context.Context) float64 {
	stats, err := t.Ingame.GameStats(ctx)
	if err != nil {
		if t.Logger != nil {
			t.Logger.Debug("recording: failed to capture start offset, defaulting to 0", "error", err)
		}
		return 0
	}
	return stats.GameTime
}
