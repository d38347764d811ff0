// Package main implements recorder-agent, the League of Legends
// Recorder Coordinator daemon.
//
// recorder-agent runs unattended in the background: it watches the
// game client for a match starting and ending, drives the capture
// engine child process across that lifetime, assembles a metadata
// sidecar once the match is over, and enforces the recordings library's
// age and size retention caps.
//
// Usage:
//
//	recorder-agent [options]
//
// Options:
//
//	--config=PATH        Path to settings file (default: /etc/recorder-agent/settings.yaml)
//	--engine=PATH         Path to the recorder engine executable
//	--log-level=LEVEL    Log level: debug, info, warn, error (default: info)
//	--health-addr=ADDR    Address to serve /healthz and /metrics on (default: 127.0.0.1:9090)
//	--help                Show this help message
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lorec-gg/recorder-core/internal/config"
	"github.com/lorec-gg/recorder-core/internal/diagnostics"
	"github.com/lorec-gg/recorder-core/internal/eventsink"
	"github.com/lorec-gg/recorder-core/internal/health"
	"github.com/lorec-gg/recorder-core/internal/hotkey"
	"github.com/lorec-gg/recorder-core/internal/ingame"
	"github.com/lorec-gg/recorder-core/internal/library"
	"github.com/lorec-gg/recorder-core/internal/listener"
	"github.com/lorec-gg/recorder-core/internal/lock"
	"github.com/lorec-gg/recorder-core/internal/metadata"
	"github.com/lorec-gg/recorder-core/internal/recording"
	"github.com/lorec-gg/recorder-core/internal/supervisor"
	"github.com/lorec-gg/recorder-core/internal/util"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

var (
	configPath = flag.String("config", config.ConfigFilePath, "Path to settings file")
	enginePath = flag.String("engine", "", "Path to the recorder engine executable")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	healthAddr = flag.String("health-addr", "127.0.0.1:9090", "Address to serve /healthz and /metrics on")
	hotkeyBind = flag.String("highlight-hotkey", "", "Highlight marker hotkey binding (overrides settings file)")
	runDiag    = flag.Bool("diagnostics", false, "Run startup diagnostics and exit instead of starting the daemon")
	lockFile   = flag.String("lock-file", `C:\ProgramData\recorder-agent\recorder-agent.lock`, "Path to the singleton-instance lock file")
	showHelp   = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	logger.Info("recorder-agent starting", "version", Version, "commit", Commit)

	if *enginePath == "" {
		logger.Error("--engine is required")
		os.Exit(1)
	}

	if !*runDiag {
		instanceLock, err := lock.NewFileLock(*lockFile)
		if err != nil {
			logger.Error("failed to create singleton-instance lock", "error", err)
			os.Exit(1)
		}
		if err := instanceLock.Acquire(lock.DefaultAcquireTimeout); err != nil {
			logger.Error("another recorder-agent instance is already running", "lock_file", *lockFile, "error", err)
			os.Exit(1)
		}
		defer instanceLock.Release()
	}

	kc, err := config.NewKoanfConfig(config.WithYAMLFile(*configPath))
	if err != nil {
		logger.Error("failed to load settings", "error", err)
		os.Exit(1)
	}
	settings, err := kc.Load()
	if err != nil {
		logger.Warn("settings file invalid, defaults substituted field-by-field", "error", err)
	}
	if *hotkeyBind != "" {
		settings.HighlightHotkey = *hotkeyBind
	}
	if err := os.MkdirAll(settings.RecordingsFolder, 0o750); err != nil {
		logger.Error("failed to create recordings folder", "error", err)
		os.Exit(1)
	}

	if *runDiag {
		runDiagnostics(*configPath, *enginePath, settings)
		return
	}

	slot := &recording.Slot{}
	tray := eventsink.NoopTray{Logger: logger}
	sink := eventsink.NoopSink{Logger: logger}

	libManager := library.New(settings, slot, metadata.NewCollector(logger), sink)
	retentionSvc := library.NewRetentionService(libManager, logger)
	watcher := library.NewWatcher(libManager, logger)

	notifyingSink := &forwardingSink{inner: sink, onRecordingsChanged: retentionSvc.Notify}

	resourceTracker := util.NewResourceTracker()

	ingameClient := ingame.NewClient()
	gameListener := listener.New(*enginePath, settings, ingameClient, tray, notifyingSink, slot, metadata.NewCollector(logger), logger)
	gameListener.Tracker = resourceTracker

	if settings.HighlightHotkey != "" {
		if _, err := hotkey.Start(ingameClient, settings.HighlightHotkey, logger); err != nil {
			logger.Warn("highlight hotkey registration failed, continuing without it", "binding", settings.HighlightHotkey, "error", err)
		}
	}

	if err := watcher.Start(); err != nil {
		logger.Warn("recordings folder watch failed to start", "error", err)
	}
	defer watcher.Stop()

	sup := supervisor.New(supervisor.Config{
		ShutdownTimeout: 10 * time.Second,
		Logger:          logger,
	})
	if err := sup.Add(&listenerService{l: gameListener}); err != nil {
		logger.Error("failed to register game listener", "error", err)
		os.Exit(1)
	}
	if err := sup.Add(retentionSvc); err != nil {
		logger.Error("failed to register retention sweep", "error", err)
		os.Exit(1)
	}

	healthSrv := &http.Server{
		Addr:    *healthAddr,
		Handler: health.NewHandler(&statusAdapter{sup: sup}),
	}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("health endpoint stopped", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := sup.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("supervisor exited with error", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	if leaked := resourceTracker.LeakedResources(); len(leaked) > 0 {
		logger.Warn("engine child processes still tracked at shutdown", "leaked", leaked)
	}

	logger.Info("recorder-agent stopped")
}

// statusAdapter adapts *supervisor.Supervisor's richer ServiceStatus to
// the narrower health.ServiceInfo the /healthz handler reports.
type statusAdapter struct {
	sup *supervisor.Supervisor
}

func (a *statusAdapter) Services() []health.ServiceInfo {
	statuses := a.sup.Status()
	infos := make([]health.ServiceInfo, 0, len(statuses))
	for _, s := range statuses {
		info := health.ServiceInfo{
			Name:     s.Name,
			State:    s.State.String(),
			Uptime:   s.Uptime,
			Healthy:  s.State == supervisor.ServiceStateRunning,
			Restarts: s.Restarts,
		}
		if s.LastError != nil {
			info.Error = s.LastError.Error()
		}
		infos = append(infos, info)
	}
	return infos
}

// listenerService adapts *listener.Listener to supervisor.Service.
type listenerService struct {
	l *listener.Listener
}

func (s *listenerService) Name() string { return "game-listener" }

func (s *listenerService) Run(ctx context.Context) error {
	return s.l.Run(ctx)
}

// forwardingSink wraps an eventsink.EventSink, additionally triggering
// a retention sweep on every RecordingsChanged signal — the "after each
// completed recording" retention trigger spec.md §4.9 calls for, since
// a finished recording's finalize step is what calls RecordingsChanged.
type forwardingSink struct {
	inner               eventsink.EventSink
	onRecordingsChanged func()
}

func (s *forwardingSink) RecordingsChanged() {
	s.inner.RecordingsChanged()
	if s.onRecordingsChanged != nil {
		s.onRecordingsChanged()
	}
}

func (s *forwardingSink) MetadataChanged(paths []string) {
	s.inner.MetadataChanged(paths)
}

func (s *forwardingSink) MarkerflagsChanged() {
	s.inner.MarkerflagsChanged()
}

// runDiagnostics runs the startup check suite and prints a report,
// for use ahead of a real launch or when troubleshooting a report from
// a user (spec.md §6's external diagnostics surface).
func runDiagnostics(configPath, enginePath string, settings *config.Settings) {
	runner := diagnostics.NewRunner(diagnostics.Options{
		Mode:             diagnostics.ModeFull,
		ConfigPath:       configPath,
		RecordingsFolder: settings.RecordingsFolder,
		EnginePath:       enginePath,
		Output:           os.Stdout,
	})

	report, err := runner.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "diagnostics failed: %v\n", err)
		os.Exit(1)
	}
	diagnostics.PrintReport(os.Stdout, report)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "recorder-agent - League of Legends recording coordinator")
		fmt.Fprintln(os.Stderr, "\nUsage: recorder-agent [options]")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}
}
