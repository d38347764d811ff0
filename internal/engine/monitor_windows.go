// SPDX-License-Identifier: MIT

//go:build windows

package engine

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"
)

func init() {
	collectMetrics = collectMetricsWindows
}

// collectMetricsWindows gathers resource usage for the Recorder Engine
// child process via the Win32 process APIs: working-set memory and handle
// count from GetProcessMemoryInfo/GetProcessHandleCount, CPU percent from
// GetProcessTimes deltas against wall-clock elapsed, and uptime from the
// process creation time.
func collectMetricsWindows(pid int) (*ResourceMetrics, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	var handleCount uint32
	if err := windows.GetProcessHandleCount(h, &handleCount); err != nil {
		return nil, fmt.Errorf("get handle count for pid %d: %w", pid, err)
	}

	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(h, &creation, &exit, &kernel, &user); err != nil {
		return nil, fmt.Errorf("get process times for pid %d: %w", pid, err)
	}

	var memCounters windows.PROCESS_MEMORY_COUNTERS
	if err := windows.GetProcessMemoryInfo(h, &memCounters); err != nil {
		return nil, fmt.Errorf("get memory info for pid %d: %w", pid, err)
	}

	created := time.Unix(0, creation.Nanoseconds())
	uptime := time.Since(created)

	cpuTime := filetimeToDuration(kernel) + filetimeToDuration(user)
	cpuPercent := 0.0
	if uptime > 0 {
		cpuPercent = 100 * cpuTime.Seconds() / uptime.Seconds()
	}

	return &ResourceMetrics{
		PID:         pid,
		HandleCount: int(handleCount),
		CPUPercent:  cpuPercent,
		MemoryBytes: int64(memCounters.WorkingSetSize),
		ThreadCount: 0,
		Uptime:      uptime,
		Timestamp:   time.Now(),
	}, nil
}

func filetimeToDuration(ft windows.Filetime) time.Duration {
	// Filetime ticks are 100ns units.
	ticks := int64(ft.HighDateTime)<<32 | int64(ft.LowDateTime)
	return time.Duration(ticks * 100)
}
