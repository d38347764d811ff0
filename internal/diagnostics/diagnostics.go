// Package diagnostics provides startup health checks for the recorder
// coordinator: is the Recorder Engine binary present, is the recordings
// folder writable, can the League Client's local control-plane port be
// reached, is the game window visible to the window probe.
//
// Platform-specific checks (window probe, DPI awareness, disk free space)
// are collected behind package-level hooks set by diagnostics_windows.go;
// diagnostics_other.go provides a non-functional stub so the package still
// builds on a non-Windows development machine.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// CheckResult represents the result of a single diagnostic check.
type CheckResult struct {
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Status      CheckStatus   `json:"status"`
	Message     string        `json:"message"`
	Details     string        `json:"details,omitempty"`
	Duration    time.Duration `json:"duration"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// CheckStatus indicates the result of a check.
type CheckStatus string

const (
	StatusOK       CheckStatus = "OK"
	StatusWarning  CheckStatus = "WARNING"
	StatusCritical CheckStatus = "CRITICAL"
	StatusSkipped  CheckStatus = "SKIPPED"
	StatusError    CheckStatus = "ERROR"
)

// DiagnosticReport contains results from all diagnostic checks.
type DiagnosticReport struct {
	Timestamp  time.Time     `json:"timestamp"`
	Duration   time.Duration `json:"duration"`
	SystemInfo *SystemInfo   `json:"system_info"`
	Checks     []CheckResult `json:"checks"`
	Summary    *Summary      `json:"summary"`
	Healthy    bool          `json:"healthy"`
}

// SystemInfo contains basic system information.
type SystemInfo struct {
	Hostname     string `json:"hostname"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	CPUs         int    `json:"cpus"`
	GoVersion    string `json:"go_version"`
}

// Summary contains a summary of check results.
type Summary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
	Skipped  int `json:"skipped"`
	Error    int `json:"error"`
}

// CheckMode determines which checks to run.
type CheckMode string

const (
	ModeQuick CheckMode = "quick" // Essential checks only
	ModeFull  CheckMode = "full"  // All checks (default)
)

// DiskUsageWarningPercent is the disk usage percentage, on the recordings
// volume, that triggers a warning (the Library Manager's retention caps
// should keep usage below this under normal operation).
const DiskUsageWarningPercent = 90

// DiskUsageCriticalPercent is the disk usage percentage that triggers
// critical status — retention is no longer keeping up.
const DiskUsageCriticalPercent = 97

// Options configures the diagnostic run.
type Options struct {
	Mode CheckMode

	// ConfigPath is the settings YAML file the coordinator loads at startup.
	ConfigPath string

	// RecordingsFolder is the Settings.RecordingsFolder value to validate.
	RecordingsFolder string

	// EnginePath is the configured path to the Recorder Engine child
	// binary, or empty to look it up on PATH.
	EnginePath string

	// ControlPlanePort is the League Client local REST API port to probe,
	// or 0 to skip the check (it is only known once C2 has discovered
	// credentials from the launcher's command line).
	ControlPlanePort int

	Output  io.Writer
	Verbose bool
}

// DefaultOptions returns default diagnostic options.
func DefaultOptions() Options {
	return Options{
		Mode:       ModeFull,
		ConfigPath: `C:\ProgramData\recorder-agent\config.yaml`,
		Output:     os.Stdout,
	}
}

// Runner executes diagnostic checks.
type Runner struct {
	opts Options
}

// NewRunner creates a new diagnostic runner.
func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts}
}

// Run executes all diagnostic checks and returns a report.
func (r *Runner) Run(ctx context.Context) (*DiagnosticReport, error) {
	start := time.Now()

	report := &DiagnosticReport{
		Timestamp:  start,
		SystemInfo: r.collectSystemInfo(),
		Summary:    &Summary{},
	}

	for _, check := range r.getChecks() {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
			result := check(ctx)
			report.Checks = append(report.Checks, result)

			report.Summary.Total++
			switch result.Status {
			case StatusOK:
				report.Summary.OK++
			case StatusWarning:
				report.Summary.Warning++
			case StatusCritical:
				report.Summary.Critical++
			case StatusSkipped:
				report.Summary.Skipped++
			case StatusError:
				report.Summary.Error++
			}
		}
	}

	report.Duration = time.Since(start)
	report.Healthy = report.Summary.Critical == 0 && report.Summary.Error == 0

	return report, nil
}

// getChecks returns the checks to run based on mode.
func (r *Runner) getChecks() []func(context.Context) CheckResult {
	quickChecks := []func(context.Context) CheckResult{
		r.checkEngineBinary,
		r.checkRecordingsFolder,
		r.checkConfig,
	}

	if r.opts.Mode == ModeQuick {
		return quickChecks
	}

	return []func(context.Context) CheckResult{
		r.checkEngineBinary,
		r.checkRecordingsFolder,
		r.checkDiskSpace,
		r.checkConfig,
		r.checkGameClientWindow,
		r.checkDPIAwareness,
		r.checkControlPlanePort,
	}
}

// collectSystemInfo gathers basic, platform-independent system information.
func (r *Runner) collectSystemInfo() *SystemInfo {
	info := &SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		CPUs:         runtime.NumCPU(),
		GoVersion:    runtime.Version(),
	}
	if h, err := os.Hostname(); err == nil {
		info.Hostname = h
	}
	return info
}

func (r *Runner) checkEngineBinary(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "Recorder Engine", Category: "Dependencies"}

	path := r.opts.EnginePath
	var err error
	if path == "" {
		path, err = exec.LookPath("recorder-engine.exe")
	} else {
		_, err = os.Stat(path)
	}

	if err != nil {
		result.Status = StatusCritical
		result.Message = "Recorder Engine binary not found"
		result.Suggestions = append(result.Suggestions, "Install the Recorder Engine and pass its path with --engine")
	} else {
		result.Status = StatusOK
		result.Message = "Recorder Engine binary found"
		result.Details = path
	}

	result.Duration = time.Since(start)
	return result
}

func (r *Runner) checkRecordingsFolder(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "Recordings Folder", Category: "Storage"}

	folder := r.opts.RecordingsFolder
	if folder == "" {
		result.Status = StatusWarning
		result.Message = "Recordings folder not configured"
		result.Duration = time.Since(start)
		return result
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		result.Status = StatusCritical
		result.Message = "Recordings folder cannot be created"
		result.Details = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	probe := filepath.Join(folder, ".recorder-agent-write-test")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		result.Status = StatusCritical
		result.Message = "Recordings folder is not writable"
		result.Details = err.Error()
	} else {
		_ = os.Remove(probe)
		result.Status = StatusOK
		result.Message = "Recordings folder writable"
		result.Details = folder
	}

	result.Duration = time.Since(start)
	return result
}

func (r *Runner) checkDiskSpace(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "Disk Space", Category: "Storage"}

	folder := r.opts.RecordingsFolder
	if folder == "" {
		folder = "."
	}

	total, free, err := collectDiskUsage(folder)
	if err != nil {
		result.Status = StatusSkipped
		result.Message = "Disk space check unavailable"
		result.Details = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	usedPercent := 100.0
	if total > 0 {
		usedPercent = 100.0 - (float64(free)/float64(total))*100.0
	}

	switch {
	case usedPercent > DiskUsageCriticalPercent:
		result.Status = StatusCritical
		result.Message = fmt.Sprintf("Recordings volume usage critical: %.1f%%", usedPercent)
		result.Suggestions = append(result.Suggestions, "Lower max_total_size_gb or free up disk space")
	case usedPercent > DiskUsageWarningPercent:
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Recordings volume usage high: %.1f%%", usedPercent)
	default:
		result.Status = StatusOK
		result.Message = fmt.Sprintf("Recordings volume usage: %.1f%% (%s free)", usedPercent, formatBytes(int64(free)))
	}

	result.Duration = time.Since(start)
	return result
}

func (r *Runner) checkConfig(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "Configuration", Category: "Config"}

	if _, err := os.Stat(r.opts.ConfigPath); os.IsNotExist(err) {
		result.Status = StatusOK
		result.Message = "Configuration file not found, defaults will be used"
		result.Details = r.opts.ConfigPath
	} else {
		result.Status = StatusOK
		result.Message = "Configuration file exists"
		result.Details = r.opts.ConfigPath
	}

	result.Duration = time.Since(start)
	return result
}

func (r *Runner) checkGameClientWindow(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "Game Client Window", Category: "Probe"}

	found, title, err := collectWindowProbe()
	switch {
	case err != nil:
		result.Status = StatusSkipped
		result.Message = "Window probe unavailable"
		result.Details = err.Error()
	case found:
		result.Status = StatusOK
		result.Message = "Game client window detected"
		result.Details = title
	default:
		result.Status = StatusWarning
		result.Message = "Game client window not currently visible"
		result.Suggestions = append(result.Suggestions, "This is expected when no game is running")
	}

	result.Duration = time.Since(start)
	return result
}

func (r *Runner) checkDPIAwareness(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "DPI Awareness", Category: "Probe"}

	aware, err := collectDPIAwareness()
	switch {
	case err != nil:
		result.Status = StatusSkipped
		result.Message = "DPI awareness check unavailable"
		result.Details = err.Error()
	case aware:
		result.Status = StatusOK
		result.Message = "Process is per-monitor DPI aware"
	default:
		result.Status = StatusWarning
		result.Message = "Process is not DPI aware; window capture geometry may be wrong on scaled displays"
		result.Suggestions = append(result.Suggestions, "Call SetProcessDpiAwarenessContext at startup")
	}

	result.Duration = time.Since(start)
	return result
}

func (r *Runner) checkControlPlanePort(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "Control-Plane Port", Category: "Network"}

	if r.opts.ControlPlanePort == 0 {
		result.Status = StatusSkipped
		result.Message = "League Client port not yet discovered"
		result.Duration = time.Since(start)
		return result
	}

	addr := fmt.Sprintf("127.0.0.1:%d", r.opts.ControlPlanePort)
	if isPortOpen(addr) {
		result.Status = StatusOK
		result.Message = "League Client control-plane port reachable"
		result.Details = addr
	} else {
		result.Status = StatusWarning
		result.Message = "League Client control-plane port not reachable"
		result.Details = addr
	}

	result.Duration = time.Since(start)
	return result
}

func formatBytes(bytes int64) string {
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

func isPortOpen(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// PrintReport prints a formatted diagnostic report.
func PrintReport(w io.Writer, report *DiagnosticReport) {
	_, _ = fmt.Fprintf(w, "Recorder Coordinator Diagnostics Report\n")
	_, _ = fmt.Fprintf(w, "========================================\n\n")

	_, _ = fmt.Fprintf(w, "System: %s (%s/%s)\n", report.SystemInfo.Hostname, report.SystemInfo.OS, report.SystemInfo.Architecture)
	_, _ = fmt.Fprintf(w, "Time: %s\n\n", report.Timestamp.Format(time.RFC3339))

	categories := make(map[string][]CheckResult)
	var order []string
	for _, check := range report.Checks {
		if _, seen := categories[check.Category]; !seen {
			order = append(order, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, category := range order {
		_, _ = fmt.Fprintf(w, "\n%s\n%s\n", category, strings.Repeat("-", len(category)))
		for _, check := range categories[category] {
			status := "✓"
			switch check.Status {
			case StatusWarning:
				status = "⚠"
			case StatusCritical:
				status = "✗"
			case StatusError:
				status = "!"
			case StatusSkipped:
				status = "○"
			}
			_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", status, check.Name, check.Message)
			if check.Details != "" {
				_, _ = fmt.Fprintf(w, "    %s\n", check.Details)
			}
			for _, suggestion := range check.Suggestions {
				_, _ = fmt.Fprintf(w, "    -> %s\n", suggestion)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\n\nSummary\n-------\n")
	_, _ = fmt.Fprintf(w, "Total: %d | OK: %d | Warning: %d | Critical: %d | Error: %d | Skipped: %d\n",
		report.Summary.Total, report.Summary.OK, report.Summary.Warning,
		report.Summary.Critical, report.Summary.Error, report.Summary.Skipped)
	_, _ = fmt.Fprintf(w, "Duration: %v\n", report.Duration)

	if report.Healthy {
		_, _ = fmt.Fprintf(w, "\nStatus: HEALTHY\n")
	} else {
		_, _ = fmt.Fprintf(w, "\nStatus: ISSUES DETECTED\n")
	}
}

// ToJSON converts the report to JSON format.
func (r *DiagnosticReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
