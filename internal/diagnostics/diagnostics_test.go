package diagnostics

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Mode != ModeFull {
		t.Errorf("expected Mode to be %q, got %q", ModeFull, opts.Mode)
	}
	if opts.ConfigPath == "" {
		t.Error("expected a non-empty default ConfigPath")
	}
	if opts.Output == nil {
		t.Error("expected Output to be os.Stdout by default")
	}
}

func TestNewRunner(t *testing.T) {
	opts := DefaultOptions()
	runner := NewRunner(opts)

	if runner == nil {
		t.Fatal("expected runner to be non-nil")
	}
	if runner.opts.Mode != opts.Mode {
		t.Errorf("expected Mode to be %q, got %q", opts.Mode, runner.opts.Mode)
	}
}

func TestCheckStatusValues(t *testing.T) {
	tests := []struct {
		status   CheckStatus
		expected string
	}{
		{StatusOK, "OK"},
		{StatusWarning, "WARNING"},
		{StatusCritical, "CRITICAL"},
		{StatusSkipped, "SKIPPED"},
		{StatusError, "ERROR"},
	}

	for _, tt := range tests {
		if string(tt.status) != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, string(tt.status))
		}
	}
}

func TestRunnerQuickModeRunsFewerChecks(t *testing.T) {
	dir := t.TempDir()

	quick := NewRunner(Options{Mode: ModeQuick, RecordingsFolder: dir, ConfigPath: filepath.Join(dir, "config.yaml")})
	full := NewRunner(Options{Mode: ModeFull, RecordingsFolder: dir, ConfigPath: filepath.Join(dir, "config.yaml")})

	quickReport, err := quick.Run(context.Background())
	if err != nil {
		t.Fatalf("quick Run() error: %v", err)
	}
	fullReport, err := full.Run(context.Background())
	if err != nil {
		t.Fatalf("full Run() error: %v", err)
	}

	if len(quickReport.Checks) >= len(fullReport.Checks) {
		t.Errorf("expected quick mode to run fewer checks than full mode, got %d vs %d",
			len(quickReport.Checks), len(fullReport.Checks))
	}
}

func TestCheckRecordingsFolderWritable(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(Options{RecordingsFolder: dir})

	result := r.checkRecordingsFolder(context.Background())
	if result.Status != StatusOK {
		t.Errorf("expected StatusOK for a writable folder, got %s: %s", result.Status, result.Message)
	}
}

func TestCheckRecordingsFolderUnconfigured(t *testing.T) {
	r := NewRunner(Options{})

	result := r.checkRecordingsFolder(context.Background())
	if result.Status != StatusWarning {
		t.Errorf("expected StatusWarning when no folder is configured, got %s", result.Status)
	}
}

func TestCheckEngineBinaryMissing(t *testing.T) {
	r := NewRunner(Options{EnginePath: filepath.Join(t.TempDir(), "does-not-exist.exe")})

	result := r.checkEngineBinary(context.Background())
	if result.Status != StatusCritical {
		t.Errorf("expected StatusCritical for a missing engine binary, got %s", result.Status)
	}
}

func TestCheckControlPlanePortSkippedWhenUnset(t *testing.T) {
	r := NewRunner(Options{})

	result := r.checkControlPlanePort(context.Background())
	if result.Status != StatusSkipped {
		t.Errorf("expected StatusSkipped when ControlPlanePort is 0, got %s", result.Status)
	}
}

func TestCheckControlPlanePortUnreachable(t *testing.T) {
	r := NewRunner(Options{ControlPlanePort: 1}) // port 1 is reserved, nothing listens there

	result := r.checkControlPlanePort(context.Background())
	if result.Status != StatusWarning {
		t.Errorf("expected StatusWarning for an unreachable port, got %s", result.Status)
	}
}

func TestRunProducesHealthySummaryWhenNoCriticalChecks(t *testing.T) {
	dir := t.TempDir()
	enginePath := filepath.Join(dir, "recorder-engine.exe")
	if err := os.WriteFile(enginePath, []byte("stub"), 0o755); err != nil {
		t.Fatalf("write engine stub: %v", err)
	}
	r := NewRunner(Options{Mode: ModeQuick, RecordingsFolder: dir, ConfigPath: filepath.Join(dir, "config.yaml"), EnginePath: enginePath})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Summary.Total != len(report.Checks) {
		t.Errorf("expected Summary.Total to match len(Checks), got %d vs %d", report.Summary.Total, len(report.Checks))
	}
	if !report.Healthy {
		t.Errorf("expected a healthy report with no critical/error checks, got summary: %+v", report.Summary)
	}
}

func TestPrintReportIncludesSummary(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(Options{Mode: ModeQuick, RecordingsFolder: dir, ConfigPath: filepath.Join(dir, "config.yaml")})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("Summary")) {
		t.Error("expected printed report to contain a Summary section")
	}
}

func TestToJSON(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(Options{Mode: ModeQuick, RecordingsFolder: dir, ConfigPath: filepath.Join(dir, "config.yaml")})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty JSON output")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{500, "500 B"},
		{1024, "1.0 KiB"},
		{1024 * 1024, "1.0 MiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.expected {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.expected)
		}
	}
}
