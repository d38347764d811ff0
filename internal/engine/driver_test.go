// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"testing"
	"time"
)

// newTestDriver builds a Driver wired to a loopback codec without
// spawning a real child process, so state-machine and protocol-error
// behavior can be tested without an actual Recorder Engine binary.
func newTestDriver(t *testing.T) (*Driver, *bufioPipe) {
	t.Helper()
	c, child := newLoopbackCodec(t)
	drv := &Driver{
		enginePath:  "fake-engine",
		stopTimeout: 200 * time.Millisecond,
		state:       StateCreated,
		codec:       c,
	}
	return drv, child
}

func respondOK(t *testing.T, child *bufioPipe, payload string) {
	t.Helper()
	buf := make([]byte, 8192)
	if _, err := child.childReads.Read(buf); err != nil {
		t.Errorf("read request: %v", err)
		return
	}
	body := `{"ok":true`
	if payload != "" {
		body += `,"payload":` + payload
	}
	body += "}\n"
	if _, err := child.childWrites.Write([]byte(body)); err != nil {
		t.Errorf("write response: %v", err)
	}
}

func TestConfigureTransitionsToConfigured(t *testing.T) {
	drv, child := newTestDriver(t)
	go respondOK(t, child, "")

	if err := drv.Configure(Settings{WindowTitle: "League of Legends (TM) Client"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if drv.State() != StateConfigured {
		t.Fatalf("got state %s, want configured", drv.State())
	}
}

func TestConfigureRejectsWrongState(t *testing.T) {
	drv, _ := newTestDriver(t)
	drv.state = StateRecording

	err := drv.Configure(Settings{})
	if err == nil {
		t.Fatal("expected error configuring from non-created state")
	}
}

func TestStartRecordingTransitionsToRecording(t *testing.T) {
	drv, child := newTestDriver(t)
	drv.state = StateConfigured
	go respondOK(t, child, "")

	if err := drv.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if drv.State() != StateRecording {
		t.Fatalf("got state %s, want recording", drv.State())
	}
}

func TestStartRecordingPropagatesEngineRejection(t *testing.T) {
	drv, child := newTestDriver(t)
	drv.state = StateConfigured

	go func() {
		buf := make([]byte, 8192)
		_, _ = child.childReads.Read(buf)
		_, _ = child.childWrites.Write([]byte(`{"ok":false,"error":"no signal"}` + "\n"))
	}()

	err := drv.StartRecording(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if drv.State() != StateConfigured {
		t.Fatalf("state should remain configured on failed start, got %s", drv.State())
	}
}

func TestAvailableEncodersDecodesPayload(t *testing.T) {
	drv, child := newTestDriver(t)
	go respondOK(t, child, `{"encoders":["nvenc","x264"]}`)

	encoders, err := drv.AvailableEncoders()
	if err != nil {
		t.Fatalf("AvailableEncoders: %v", err)
	}
	if len(encoders) != 2 {
		t.Fatalf("got %v", encoders)
	}
}
