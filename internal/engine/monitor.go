// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// ResourceMetrics contains resource usage information for the capture child process.
type ResourceMetrics struct {
	PID           int           // Process ID
	HandleCount   int           // Number of open OS handles
	CPUPercent    float64       // CPU usage percentage
	MemoryBytes   int64         // Working-set memory in bytes
	MemoryPercent float64       // Memory usage percentage
	ThreadCount   int           // Number of threads
	Uptime        time.Duration // Process uptime
	Timestamp     time.Time     // When metrics were collected
}

// ResourceThresholds defines warning and critical thresholds for resources.
type ResourceThresholds struct {
	HandleWarning  int     // Handle-count warning threshold (default: 500)
	HandleCritical int     // Handle-count critical threshold (default: 1000)
	CPUWarning     float64 // CPU warning threshold % (default: 50.0)
	CPUCritical    float64 // CPU critical threshold % (default: 85.0)
	MemoryWarning  int64   // Memory warning threshold bytes (default: 1GB)
	MemoryCritical int64   // Memory critical threshold bytes (default: 2GB)
}

// DefaultThresholds returns sensible default resource thresholds for a
// screen-capture encoder child, which legitimately uses more CPU/memory
// than a lightweight audio encoder.
func DefaultThresholds() ResourceThresholds {
	return ResourceThresholds{
		HandleWarning:  500,
		HandleCritical: 1000,
		CPUWarning:     50.0,
		CPUCritical:    85.0,
		MemoryWarning:  1024 * 1024 * 1024,
		MemoryCritical: 2 * 1024 * 1024 * 1024,
	}
}

// AlertLevel indicates the severity of a resource alert.
type AlertLevel int

const (
	AlertNone AlertLevel = iota
	AlertWarning
	AlertCritical
)

func (a AlertLevel) String() string {
	switch a {
	case AlertWarning:
		return "WARNING"
	case AlertCritical:
		return "CRITICAL"
	default:
		return "OK"
	}
}

// ResourceAlert represents an alert for resource usage.
type ResourceAlert struct {
	Level    AlertLevel
	Resource string // "handles", "cpu", "memory"
	Message  string
	Value    interface{}
}

// collectMetrics is implemented per-platform (monitor_windows.go / monitor_other.go).
var collectMetrics func(pid int) (*ResourceMetrics, error)

// ResourceMonitor monitors resource usage of the Recorder Engine child process.
type ResourceMonitor struct {
	thresholds ResourceThresholds
	logger     io.Writer
	mu         sync.RWMutex
	metrics    map[int]*ResourceMetrics
}

// MonitorOption is a functional option for configuring the monitor.
type MonitorOption func(*ResourceMonitor)

// WithThresholds sets custom resource thresholds.
func WithThresholds(t ResourceThresholds) MonitorOption {
	return func(m *ResourceMonitor) {
		m.thresholds = t
	}
}

// WithMonitorLogger sets a logger for the monitor.
func WithMonitorLogger(w io.Writer) MonitorOption {
	return func(m *ResourceMonitor) {
		m.logger = w
	}
}

// NewResourceMonitor creates a new resource monitor for the engine child process.
func NewResourceMonitor(opts ...MonitorOption) *ResourceMonitor {
	m := &ResourceMonitor{
		thresholds: DefaultThresholds(),
		metrics:    make(map[int]*ResourceMetrics),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// GetMetrics collects current resource metrics for the engine child process.
func (m *ResourceMonitor) GetMetrics(pid int) (*ResourceMetrics, error) {
	if collectMetrics == nil {
		return nil, fmt.Errorf("resource collection unsupported on this platform")
	}

	metrics, err := collectMetrics(pid)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.metrics[pid] = metrics
	m.mu.Unlock()

	return metrics, nil
}

// CheckThresholds checks metrics against thresholds and returns alerts.
func (m *ResourceMonitor) CheckThresholds(metrics *ResourceMetrics) []ResourceAlert {
	var alerts []ResourceAlert

	if metrics.HandleCount >= m.thresholds.HandleCritical {
		alerts = append(alerts, ResourceAlert{
			Level:    AlertCritical,
			Resource: "handles",
			Message:  fmt.Sprintf("handle count at critical level: %d >= %d", metrics.HandleCount, m.thresholds.HandleCritical),
			Value:    metrics.HandleCount,
		})
	} else if metrics.HandleCount >= m.thresholds.HandleWarning {
		alerts = append(alerts, ResourceAlert{
			Level:    AlertWarning,
			Resource: "handles",
			Message:  fmt.Sprintf("handle count at warning level: %d >= %d", metrics.HandleCount, m.thresholds.HandleWarning),
			Value:    metrics.HandleCount,
		})
	}

	if metrics.CPUPercent >= m.thresholds.CPUCritical {
		alerts = append(alerts, ResourceAlert{
			Level:    AlertCritical,
			Resource: "cpu",
			Message:  fmt.Sprintf("CPU usage at critical level: %.1f%% >= %.1f%%", metrics.CPUPercent, m.thresholds.CPUCritical),
			Value:    metrics.CPUPercent,
		})
	} else if metrics.CPUPercent >= m.thresholds.CPUWarning {
		alerts = append(alerts, ResourceAlert{
			Level:    AlertWarning,
			Resource: "cpu",
			Message:  fmt.Sprintf("CPU usage at warning level: %.1f%% >= %.1f%%", metrics.CPUPercent, m.thresholds.CPUWarning),
			Value:    metrics.CPUPercent,
		})
	}

	if metrics.MemoryBytes >= m.thresholds.MemoryCritical {
		alerts = append(alerts, ResourceAlert{
			Level:    AlertCritical,
			Resource: "memory",
			Message:  fmt.Sprintf("memory usage at critical level: %d bytes >= %d bytes", metrics.MemoryBytes, m.thresholds.MemoryCritical),
			Value:    metrics.MemoryBytes,
		})
	} else if metrics.MemoryBytes >= m.thresholds.MemoryWarning {
		alerts = append(alerts, ResourceAlert{
			Level:    AlertWarning,
			Resource: "memory",
			Message:  fmt.Sprintf("memory usage at warning level: %d bytes >= %d bytes", metrics.MemoryBytes, m.thresholds.MemoryWarning),
			Value:    metrics.MemoryBytes,
		})
	}

	return alerts
}

// MonitorProcess starts continuous monitoring of the engine child process.
// Stops when context is cancelled or the process can no longer be queried
// (it has exited).
func (m *ResourceMonitor) MonitorProcess(ctx context.Context, pid int, interval time.Duration, alertCallback func([]ResourceAlert)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics, err := m.GetMetrics(pid)
			if err != nil {
				if m.logger != nil {
					fmt.Fprintf(m.logger, "failed to get metrics for pid %d: %v\n", pid, err)
				}
				return
			}

			alerts := m.CheckThresholds(metrics)
			if len(alerts) > 0 {
				if m.logger != nil {
					for _, alert := range alerts {
						fmt.Fprintf(m.logger, "[%s] pid %d: %s\n", alert.Level, pid, alert.Message)
					}
				}
				if alertCallback != nil {
					alertCallback(alerts)
				}
			}
		}
	}
}

// GetCachedMetrics returns the last collected metrics for a process.
func (m *ResourceMonitor) GetCachedMetrics(pid int) *ResourceMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics[pid]
}

// ClearMetrics removes cached metrics for a process.
func (m *ResourceMonitor) ClearMetrics(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.metrics, pid)
}

// FormatBytes formats bytes as a human-readable string.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
