// SPDX-License-Identifier: MIT

package hotkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lorec-gg/recorder-core/internal/ingame"
)

type fakeClock struct {
	time float64
	err  error
}

func (f *fakeClock) GameStats(ctx context.Context) (ingame.GameStats, error) {
	if f.err != nil {
		return ingame.GameStats{}, f.err
	}
	return ingame.GameStats{GameTime: f.time}, nil
}

func TestTaskAccumulatesOneTimestampPerPress(t *testing.T) {
	presses := make(chan struct{}, signalCapacity)
	torn := false
	clock := &fakeClock{time: 61.5}

	task := startTask(clock, presses, func() { torn = true }, nil)

	presses <- struct{}{}
	presses <- struct{}{}

	// give the collector goroutine a chance to drain both presses
	time.Sleep(20 * time.Millisecond)

	got := task.Stop()
	if !torn {
		t.Error("teardown was not called")
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 timestamps", got)
	}
	for _, ts := range got {
		if ts != 61500 {
			t.Errorf("got timestamp %v, want 61500ms", ts)
		}
	}
}

func TestTaskSkipsTimestampOnClockError(t *testing.T) {
	presses := make(chan struct{}, signalCapacity)
	clock := &fakeClock{err: errors.New("ingame client unreachable")}

	task := startTask(clock, presses, func() {}, nil)
	presses <- struct{}{}
	time.Sleep(20 * time.Millisecond)

	got := task.Stop()
	if len(got) != 0 {
		t.Fatalf("got %v, want no timestamps recorded on clock error", got)
	}
}

func TestTaskStopWithNoPressesReturnsEmptyVector(t *testing.T) {
	presses := make(chan struct{}, signalCapacity)
	task := startTask(&fakeClock{}, presses, func() {}, nil)

	got := task.Stop()
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestForwardDropsPressesPastCapacityWithoutBlocking(t *testing.T) {
	// Directly exercises the drop path: signals has capacity 1 below, so
	// a second press must be dropped rather than block forward().
	task := &Task{
		presses: make(chan struct{}),
		signals: make(chan struct{}, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raw := make(chan struct{})
	task.presses = raw
	go task.forward(ctx)

	raw <- struct{}{}
	raw <- struct{}{} // would block if forward() didn't drop on a full buffer

	select {
	case <-task.signals:
	case <-time.After(time.Second):
		t.Fatal("expected first press to reach the signals channel")
	}
}
