package orchestrator

import (
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/history"
	"reelsmith/internal/job"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/store"
	"reelsmith/internal/sysguard"
)

// Manager drives jobs through the pipeline one at a time. It owns the poll
// loop, the crash reconciliation at startup, and the per-job timeout, stop,
// and guard handling.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	recorder *history.Recorder
	guard    *sysguard.Guard
	notifier notifications.Service
	logger   *slog.Logger

	pollInterval       time.Duration
	errorRetryInterval time.Duration
	guardPollInterval  time.Duration
	jobTimeout         time.Duration

	mu          sync.RWMutex
	running     bool
	cancel      func()
	wg          sync.WaitGroup
	lastErr     error
	active      *job.Job
	activeStage string
	activeSince time.Time
	lastPersist time.Time
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithJobTimeout overrides the wall-clock ceiling for a single job.
func WithJobTimeout(d time.Duration) Option {
	return func(m *Manager) { m.jobTimeout = d }
}

// WithPollInterval overrides how often the manager looks for pending jobs.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.pollInterval = d }
}

// WithGuardPollInterval overrides how often the guard samples during a job.
func WithGuardPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.guardPollInterval = d }
}

// NewManager constructs an orchestrator. The history recorder may be nil;
// estimates then run on the static model alone.
func NewManager(cfg *config.Config, jobStore *store.Store, recorder *history.Recorder, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Manager {
	if notifier == nil {
		notifier = notifications.Noop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:                cfg,
		store:              jobStore,
		recorder:           recorder,
		guard:              sysguard.New(cfg.Guard, jobStore.Root()),
		notifier:           notifier,
		logger:             logging.NewComponentLogger(logger, "orchestrator"),
		pollInterval:       time.Duration(cfg.Workflow.PollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		guardPollInterval:  time.Duration(cfg.Workflow.GuardPollInterval) * time.Second,
		jobTimeout:         time.Duration(cfg.Workflow.JobTimeoutMinutes) * time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Guard exposes the manager's system guard, used by status reporting.
func (m *Manager) Guard() *sysguard.Guard { return m.guard }
