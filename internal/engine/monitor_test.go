// SPDX-License-Identifier: MIT

package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestAlertLevelString(t *testing.T) {
	cases := []struct {
		level AlertLevel
		want  string
	}{
		{AlertNone, "OK"},
		{AlertWarning, "WARNING"},
		{AlertCritical, "CRITICAL"},
	}
	for _, c := range cases {
		if got := c.level.String(); got != c.want {
			t.Errorf("AlertLevel(%d).String() = %q, want %q", c.level, got, c.want)
		}
	}
}

func TestCheckThresholds(t *testing.T) {
	m := NewResourceMonitor(WithThresholds(ResourceThresholds{
		HandleWarning:  100,
		HandleCritical: 200,
		CPUWarning:     50,
		CPUCritical:    90,
		MemoryWarning:  1000,
		MemoryCritical: 2000,
	}))

	tests := []struct {
		name       string
		metrics    *ResourceMetrics
		wantAlerts int
		wantLevel  AlertLevel
	}{
		{"all clear", &ResourceMetrics{HandleCount: 10, CPUPercent: 1, MemoryBytes: 10}, 0, AlertNone},
		{"handle warning", &ResourceMetrics{HandleCount: 150, CPUPercent: 1, MemoryBytes: 10}, 1, AlertWarning},
		{"handle critical", &ResourceMetrics{HandleCount: 250, CPUPercent: 1, MemoryBytes: 10}, 1, AlertCritical},
		{"all critical", &ResourceMetrics{HandleCount: 250, CPUPercent: 95, MemoryBytes: 2500}, 3, AlertCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := m.CheckThresholds(tt.metrics)
			if len(alerts) != tt.wantAlerts {
				t.Fatalf("got %d alerts, want %d: %+v", len(alerts), tt.wantAlerts, alerts)
			}
			if tt.wantAlerts > 0 && alerts[0].Level != tt.wantLevel {
				t.Errorf("alert level = %v, want %v", alerts[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestResourceMonitorCachesMetrics(t *testing.T) {
	prev := collectMetrics
	defer func() { collectMetrics = prev }()

	collectMetrics = func(pid int) (*ResourceMetrics, error) {
		return &ResourceMetrics{PID: pid, HandleCount: 5}, nil
	}

	m := NewResourceMonitor()
	if got := m.GetCachedMetrics(123); got != nil {
		t.Fatalf("expected no cached metrics before GetMetrics, got %+v", got)
	}

	metrics, err := m.GetMetrics(123)
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if metrics.HandleCount != 5 {
		t.Errorf("HandleCount = %d, want 5", metrics.HandleCount)
	}

	if got := m.GetCachedMetrics(123); got == nil || got.HandleCount != 5 {
		t.Errorf("GetCachedMetrics = %+v, want cached handle count 5", got)
	}

	m.ClearMetrics(123)
	if got := m.GetCachedMetrics(123); got != nil {
		t.Errorf("expected metrics cleared, got %+v", got)
	}
}

func TestMonitorProcessStopsOnCollectError(t *testing.T) {
	prev := collectMetrics
	defer func() { collectMetrics = prev }()

	collectMetrics = func(pid int) (*ResourceMetrics, error) {
		return nil, errProcessGone
	}

	var buf bytes.Buffer
	m := NewResourceMonitor(WithMonitorLogger(&buf))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.MonitorProcess(ctx, 1, 10*time.Millisecond, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("MonitorProcess did not return after collection failure")
	}

	if !strings.Contains(buf.String(), "failed to get metrics") {
		t.Errorf("expected failure log line, got %q", buf.String())
	}
}

func TestMonitorProcessInvokesCallbackOnAlert(t *testing.T) {
	prev := collectMetrics
	defer func() { collectMetrics = prev }()

	collectMetrics = func(pid int) (*ResourceMetrics, error) {
		return &ResourceMetrics{PID: pid, CPUPercent: 99}, nil
	}

	thresholds := DefaultThresholds()
	thresholds.CPUCritical = 90
	m := NewResourceMonitor(WithThresholds(thresholds))

	ctx, cancel := context.WithCancel(context.Background())
	alerted := make(chan []ResourceAlert, 1)

	go m.MonitorProcess(ctx, 1, 5*time.Millisecond, func(alerts []ResourceAlert) {
		select {
		case alerted <- alerts:
		default:
		}
	})
	defer cancel()

	select {
	case alerts := <-alerted:
		if len(alerts) == 0 || alerts[0].Resource != "cpu" {
			t.Errorf("unexpected alerts: %+v", alerts)
		}
	case <-time.After(time.Second):
		t.Fatal("alert callback never invoked")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{500, "500 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
	}
	for _, c := range cases {
		if got := FormatBytes(c.bytes); got != c.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", c.bytes, got, c.want)
		}
	}
}

type monitorError string

func (e monitorError) Error() string { return string(e) }

const errProcessGone = monitorError("process gone")
