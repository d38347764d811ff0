// Package supervisor provides a supervision tree for the coordinator's
// long-lived collaborators: the Game Listener (C7) and the Recordings
// Library retention sweep. The detached finalize tasks the listener spawns
// are not supervised here; they run under util.SafeGo.
//
// It wraps github.com/thejerf/suture/v4 so restart/backoff/jitter behavior
// on service crash comes from a maintained OTP-style supervisor rather than
// a hand-rolled restart loop, while keeping a small facade (Service, Add,
// Status) so callers don't need to know suture's API.
//
// Example:
//
//	sup := supervisor.New(supervisor.Config{
//	    ShutdownTimeout: 10 * time.Second,
//	})
//
//	sup.Add(listenerService)
//	sup.Add(retentionSweepService)
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	if err := sup.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
)

// Service is the interface that supervised services must implement.
// Implementations should block until the context is cancelled or an error
// occurs.
type Service interface {
	// Run starts the service. It should block until ctx is cancelled or
	// the service encounters an unrecoverable error.
	Run(ctx context.Context) error

	// Name returns the service's identifier.
	Name() string
}

// ServiceState represents the current state of a supervised service.
type ServiceState int

const (
	ServiceStateIdle     ServiceState = iota // Not started
	ServiceStateRunning                      // Running normally
	ServiceStateStopping                     // Being stopped
	ServiceStateFailed                       // Failed, suture will restart it
	ServiceStateStopped                      // Stopped, terminal
)

func (s ServiceState) String() string {
	switch s {
	case ServiceStateIdle:
		return "idle"
	case ServiceStateRunning:
		return "running"
	case ServiceStateStopping:
		return "stopping"
	case ServiceStateFailed:
		return "failed"
	case ServiceStateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// ServiceStatus contains status information about a supervised service.
type ServiceStatus struct {
	Name      string
	State     ServiceState
	StartTime time.Time
	Uptime    time.Duration
	Restarts  int
	LastError error
}

// Config contains supervisor configuration.
type Config struct {
	// ShutdownTimeout is the maximum time to wait for services to stop
	// gracefully. Default: 10 seconds. Passed through as suture's
	// Spec.Timeout.
	ShutdownTimeout time.Duration

	// RestartDelay is the initial restart delay. Default: 1 second. New
	// stores it in the Config but does not pass it to suture.
	RestartDelay time.Duration

	// MaxRestartDelay caps the backoff delay between restart attempts.
	// Default: 30 seconds.
	MaxRestartDelay time.Duration

	// RestartMultiplier is the backoff growth factor. Default: 1.5. New
	// stores it in the Config but does not pass it to suture; only
	// MaxRestartDelay reaches suture, as Spec.FailureBackoff.
	RestartMultiplier float64

	// Logger is optional; if set, supervisor events are logged here.
	Logger *slog.Logger

	// Name identifies the suture supervision tree. Default:
	// "recorder-coordinator".
	Name string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ShutdownTimeout:   10 * time.Second,
		RestartDelay:      time.Second,
		MaxRestartDelay:   30 * time.Second,
		RestartMultiplier: 1.5,
	}
}

// Supervisor manages a collection of services atop a suture.Supervisor,
// tracking per-service status for reporting through internal/health.
type Supervisor struct {
	cfg Config

	mu       sync.RWMutex
	services map[string]*serviceEntry
	running  bool

	sup    *suture.Supervisor
	cancel context.CancelFunc
	done   <-chan error
}

// serviceEntry tracks a single service's lifecycle.
type serviceEntry struct {
	service   Service
	token     suture.ServiceToken
	state     ServiceState
	startTime time.Time
	restarts  int
	lastError error
}

// New creates a new Supervisor with the given configuration.
func New(cfg Config) *Supervisor {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = time.Second
	}
	if cfg.MaxRestartDelay == 0 {
		cfg.MaxRestartDelay = 30 * time.Second
	}
	if cfg.RestartMultiplier == 0 {
		cfg.RestartMultiplier = 1.5
	}
	if cfg.Name == "" {
		cfg.Name = "recorder-coordinator"
	}

	s := &Supervisor{
		cfg:      cfg,
		services: make(map[string]*serviceEntry),
	}

	s.sup = suture.New(cfg.Name, suture.Spec{
		Timeout:        cfg.ShutdownTimeout,
		FailureBackoff: cfg.MaxRestartDelay,
		BackoffJitter:  &suture.DefaultJitter{},
		EventHook:      s.onEvent,
	})

	return s
}

// onEvent is suture's EventHook; it keeps serviceEntry status in sync with
// what the real supervision tree is doing (restarts, backoff, panics).
func (s *Supervisor) onEvent(ev suture.Event) {
	name := ""
	var svcErr error

	switch e := ev.(type) {
	case suture.EventServiceTerminate:
		name = e.ServiceName
		svcErr = e.Err
	case suture.EventServicePanic:
		name = e.ServiceName
		svcErr = errors.New(e.PanicMsg)
	case suture.EventBackoff:
		name = e.SupervisorName
	case suture.EventResume:
		name = e.SupervisorName
	}

	s.logf("%s", ev.String())

	if name == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.services[name]; ok {
		entry.restarts++
		entry.lastError = svcErr
		if svcErr != nil {
			entry.state = ServiceStateFailed
		}
	}
}

// logf writes a formatted log message if Logger is configured.
func (s *Supervisor) logf(format string, args ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Info(fmt.Sprintf(format, args...))
	}
}

// Add registers a service with the supervisor. If the supervisor is
// already running, the service is started immediately by suture. Returns
// an error if a service with the same name already exists.
func (s *Supervisor) Add(svc Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := svc.Name()
	if _, exists := s.services[name]; exists {
		return fmt.Errorf("service %q already registered", name)
	}

	entry := &serviceEntry{
		service: svc,
		state:   ServiceStateIdle,
	}
	s.services[name] = entry
	entry.token = s.sup.Add(&sutureService{name: name, svc: svc})
	s.logf("added service: %s", name)

	if s.running {
		entry.state = ServiceStateRunning
		entry.startTime = time.Now()
	}

	return nil
}

// Remove unregisters and stops a service.
func (s *Supervisor) Remove(name string) error {
	s.mu.Lock()
	entry, exists := s.services[name]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("service %q not found", name)
	}
	delete(s.services, name)
	s.mu.Unlock()

	if err := s.sup.Remove(entry.token); err != nil {
		return fmt.Errorf("remove service %q: %w", name, err)
	}

	s.logf("removed service: %s", name)
	return nil
}

// Status returns the current status of all services.
func (s *Supervisor) Status() []ServiceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ServiceStatus, 0, len(s.services))
	now := time.Now()

	for name, entry := range s.services {
		var uptime time.Duration
		if !entry.startTime.IsZero() && entry.state == ServiceStateRunning {
			uptime = now.Sub(entry.startTime)
		}

		result = append(result, ServiceStatus{
			Name:      name,
			State:     entry.state,
			StartTime: entry.startTime,
			Uptime:    uptime,
			Restarts:  entry.restarts,
			LastError: entry.lastError,
		})
	}

	return result
}

// ServiceCount returns the number of registered services.
func (s *Supervisor) ServiceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.services)
}

// Run starts all registered services and blocks until ctx is cancelled or
// a service forces termination of the whole tree.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("supervisor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	now := time.Now()
	for _, entry := range s.services {
		entry.state = ServiceStateRunning
		entry.startTime = now
	}
	s.mu.Unlock()

	s.logf("supervisor started with %d services", s.ServiceCount())

	done := make(chan error, 1)
	go func() { done <- s.sup.Serve(runCtx) }()

	err := <-done

	s.mu.Lock()
	s.running = false
	for _, entry := range s.services {
		entry.state = ServiceStateStopped
	}
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor exited: %w", err)
	}
	return nil
}

// sutureService adapts our Service interface (Run+Name) to suture.Service
// (Serve) plus fmt.Stringer, so suture's event hook and logs can name
// services the way the facade does.
type sutureService struct {
	name string
	svc  Service
}

func (s *sutureService) Serve(ctx context.Context) error {
	return s.svc.Run(ctx)
}

func (s *sutureService) String() string {
	return s.name
}
