// SPDX-License-Identifier: MIT

// Package engine drives the Recorder Engine, an opaque capture+encode
// child process reached over a framed stdio protocol (configure,
// start_recording, stop_recording, shutdown). It also carries the
// resource-monitoring, log-rotation, and backoff machinery shared by
// every long-lived child process this coordinator manages.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/lorec-gg/recorder-core/internal/util"
)

// DefaultHandshakeTimeout bounds how long NewDriver waits for the child's
// initial handshake line before giving up.
const DefaultHandshakeTimeout = 10 * time.Second

// DefaultStopTimeout bounds how long StopRecording waits for the
// child's acknowledgement before the watchdog force-kills it.
const DefaultStopTimeout = 5 * time.Second

// DefaultStartRecordingTimeout bounds how long StartRecording waits for
// the child to report that the first frame is being encoded.
const DefaultStartRecordingTimeout = 10 * time.Second

// State is the driver's lifecycle stage (spec.md §3: "created →
// configured → started → (running) → stopped → shutdown. Terminal.").
type State int

const (
	StateCreated State = iota
	StateConfigured
	StateRecording
	StateStopped
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConfigured:
		return "configured"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	case StateShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Driver owns exactly one Recorder Engine child process at a time
// (spec.md §3's Recording singleton invariant, P1). A fresh Driver is
// required for each recording; Shutdown is terminal.
type Driver struct {
	enginePath  string
	stopTimeout time.Duration
	logger      *slog.Logger

	mu    sync.Mutex
	state State
	cmd   *exec.Cmd
	codec *codec

	logWriter io.WriteCloser
	tracker   *util.ResourceTracker
	trackName string
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithStopTimeout overrides DefaultStopTimeout.
func WithStopTimeout(d time.Duration) DriverOption {
	return func(drv *Driver) { drv.stopTimeout = d }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) DriverOption {
	return func(drv *Driver) { drv.logger = logger }
}

// WithStderrWriter captures the child's stderr into w (typically a
// engine.RotatingWriter), the same log-sink wiring the teacher's stream
// manager used for FFmpeg's stderr.
func WithStderrWriter(w io.WriteCloser) DriverOption {
	return func(drv *Driver) { drv.logWriter = w }
}

// WithResourceTracker registers the child process with tracker under
// name for the lifetime of the Driver, so a leak-detection pass (e.g.
// at the end of a test, or on daemon shutdown) can confirm every engine
// child NewDriver ever spawned was reaped by Shutdown.
func WithResourceTracker(tracker *util.ResourceTracker, name string) DriverOption {
	return func(drv *Driver) { drv.tracker, drv.trackName = tracker, name }
}

// NewDriver spawns the Recorder Engine child at enginePath and performs
// its handshake — the child must write a single "ready" line on stdout
// before NewDriver returns, confirming it initialized successfully.
func NewDriver(ctx context.Context, enginePath string, opts ...DriverOption) (*Driver, error) {
	drv := &Driver{
		enginePath:  enginePath,
		stopTimeout: DefaultStopTimeout,
		state:       StateCreated,
	}
	for _, opt := range opts {
		opt(drv)
	}

	// #nosec G204 - enginePath is the coordinator's own bundled binary, not user input
	cmd := exec.CommandContext(ctx, enginePath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open engine stdout: %w", err)
	}
	if drv.logWriter != nil {
		cmd.Stderr = drv.logWriter
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recorder engine: %w", err)
	}

	drv.cmd = cmd
	drv.codec = newCodec(stdin, stdout)

	if drv.tracker != nil {
		drv.tracker.TrackProcess(drv.trackName, cmd.Process)
	}

	if err := drv.handshake(ctx); err != nil {
		_ = cmd.Process.Kill()
		if drv.tracker != nil {
			drv.tracker.UntrackProcess(drv.trackName)
		}
		return nil, err
	}

	drv.logf("recorder engine handshake complete")
	return drv, nil
}

func (drv *Driver) handshake(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultHandshakeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		reader := drv.codec.r
		line, err := reader.ReadBytes('\n')
		if err != nil {
			done <- fmt.Errorf("engine handshake: %w", err)
			return
		}
		if string(line) != "ready\n" {
			done <- fmt.Errorf("engine handshake: unexpected greeting %q", line)
			return
		}
		done <- nil
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("engine handshake: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

func (drv *Driver) logf(msg string, args ...interface{}) {
	if drv.logger != nil {
		drv.logger.Info(fmt.Sprintf(msg, args...))
	}
}

// State returns the driver's current lifecycle stage.
func (drv *Driver) State() State {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	return drv.state
}

// Configure sends settings to the child (spec.md §4.4). Fails if the
// child rejects the configuration (*EngineError) or the transport
// fails.
func (drv *Driver) Configure(settings Settings) error {
	drv.mu.Lock()
	defer drv.mu.Unlock()

	if drv.state != StateCreated {
		return fmt.Errorf("engine: configure called in state %s", drv.state)
	}
	if err := drv.codec.call(VerbConfigure, settings, nil); err != nil {
		return err
	}
	drv.state = StateConfigured
	return nil
}

// StartRecording blocks until the child reports the first frame is
// being encoded, bounded by DefaultStartRecordingTimeout (spec.md
// §4.4's "Fails if no frame arrives within an engine-defined timeout").
func (drv *Driver) StartRecording(ctx context.Context) error {
	drv.mu.Lock()
	defer drv.mu.Unlock()

	if drv.state != StateConfigured {
		return fmt.Errorf("engine: start_recording called in state %s", drv.state)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultStartRecordingTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- drv.codec.call(VerbStartRecord, nil, nil) }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("engine: start_recording timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return err
		}
	}

	drv.state = StateRecording
	return nil
}

// StopRecording asks the child to flush and close the output file,
// bounded by a watchdog: if the child doesn't acknowledge within
// stopTimeout, the process is force-killed (the same
// graceful-signal-then-force-kill shape as the teacher's
// `Manager.stop`, adapted from a SIGINT+timer to a protocol
// request+timer since this child speaks a structured stdio protocol
// rather than accepting OS signals for control).
func (drv *Driver) StopRecording(ctx context.Context) error {
	drv.mu.Lock()
	defer drv.mu.Unlock()

	if drv.state != StateRecording {
		return fmt.Errorf("engine: stop_recording called in state %s", drv.state)
	}

	ctx, cancel := context.WithTimeout(ctx, drv.stopTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- drv.codec.call(VerbStopRecord, nil, nil) }()

	select {
	case <-ctx.Done():
		drv.logf("stop_recording watchdog expired, killing engine process")
		if drv.cmd.Process != nil {
			_ = drv.cmd.Process.Kill()
		}
		drv.state = StateStopped
		return fmt.Errorf("engine: stop_recording watchdog expired: %w", ctx.Err())
	case err := <-done:
		drv.state = StateStopped
		return err
	}
}

// Shutdown terminates the child. Terminal: the driver must not be
// reused afterward (spec.md §3, "a fresh instance is required for each
// recording").
func (drv *Driver) Shutdown() error {
	drv.mu.Lock()
	defer drv.mu.Unlock()

	if drv.state == StateShutdown {
		return nil
	}

	var callErr error
	if drv.cmd.ProcessState == nil {
		callErr = drv.codec.call(VerbShutdown, nil, nil)
	}

	if drv.logWriter != nil {
		_ = drv.logWriter.Close()
	}

	if drv.cmd.Process != nil {
		_ = drv.cmd.Process.Signal(os.Interrupt)
	}
	_ = drv.cmd.Wait()

	if drv.tracker != nil {
		drv.tracker.UntrackProcess(drv.trackName)
	}

	drv.state = StateShutdown
	return callErr
}

// AvailableEncoders reports the encoder backends the child detected at
// startup. Diagnostics only (spec.md §4.4).
func (drv *Driver) AvailableEncoders() ([]string, error) {
	drv.mu.Lock()
	defer drv.mu.Unlock()

	var out struct {
		Encoders []string `json:"encoders"`
	}
	if err := drv.codec.call(VerbEncoders, nil, &out); err != nil {
		return nil, err
	}
	return out.Encoders, nil
}

// SelectedEncoder reports which encoder the child is actually using.
// Diagnostics only (spec.md §4.4).
func (drv *Driver) SelectedEncoder() (string, error) {
	drv.mu.Lock()
	defer drv.mu.Unlock()

	var out struct {
		Encoder string `json:"encoder"`
	}
	if err := drv.codec.call(VerbSelectedEncoder, nil, &out); err != nil {
		return "", err
	}
	return out.Encoder, nil
}

// ErrNotRecording is returned by callers that expect a driver in
// StateRecording to find it elsewhere — not used internally (the
// exported methods return descriptive errors directly), but exposed so
// callers like the Recording Task can sentinel-match the common case.
var ErrNotRecording = errors.New("engine: driver is not currently recording")
