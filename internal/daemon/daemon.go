package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelsmith/internal/config"
	"reelsmith/internal/job"
	"reelsmith/internal/linksfile"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/orchestrator"
	"reelsmith/internal/store"
	"reelsmith/internal/watch"
)

// Daemon wires the orchestrator, the folder watcher, and single-instance
// locking into one controllable unit.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	manager *orchestrator.Manager
	watcher *watch.Watcher

	lockPath string
	lock     *flock.Flock
	logPath  string

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Orchestrator orchestrator.StatusSummary
	OutputRoot   string
	LockFilePath string
	HistoryPath  string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, jobStore *store.Store, manager *orchestrator.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || jobStore == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "reelsmithd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    jobStore,
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		logPath:  filepath.Join(cfg.Paths.LogDir, "reelsmith.log"),
	}
	watcher, err := watch.New(jobStore.Root(), d.adoptFolder, logger)
	if err != nil {
		return nil, err
	}
	d.watcher = watcher
	return d, nil
}

// Start acquires the instance lock and launches background processing.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelsmith daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.manager.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if err := d.watcher.Start(runCtx); err != nil {
		d.manager.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start folder watcher: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the lock. The active job, if
// any, is persisted as paused.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.watcher.Stop()
	d.manager.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string { return d.logPath }

// SubmitLinks validates links and creates a pending job, freezing the
// current stage settings into its snapshot.
func (d *Daemon) SubmitLinks(ctx context.Context, links []job.Link) (*job.Job, error) {
	if err := d.cfg.RequireOutputRoot(); err != nil {
		return nil, err
	}
	j := job.New(links, SnapshotSettings(d.cfg), time.Now())
	if _, err := d.store.Create(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// adoptFolder turns an externally dropped folder into a job: its links.txt
// becomes the link list and a record is written in place.
func (d *Daemon) adoptFolder(ctx context.Context, folderRef string) error {
	links, err := linksfile.ParseFile(filepath.Join(folderRef, watch.LinksFileName))
	if err != nil {
		return err
	}
	j := job.New(links, SnapshotSettings(d.cfg), time.Now())
	return d.store.Adopt(ctx, folderRef, j)
}

// SnapshotSettings freezes the stage settings a new job runs with. Later
// config edits never change jobs already submitted.
func SnapshotSettings(cfg *config.Config) job.SettingsSnapshot {
	return job.SettingsSnapshot{
		MinImages:    cfg.Stages.MinImages,
		WhisperModel: cfg.Stages.WhisperModel,
		UseGPU:       cfg.Stages.UseGPU,
		SoundsDir:    cfg.Paths.SoundsDir,
	}
}

// ListJobs returns jobs filtered by optional statuses, oldest first.
func (d *Daemon) ListJobs(ctx context.Context, statuses []job.Status) ([]*job.Job, error) {
	jobs, err := d.store.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return jobs, nil
	}
	wanted := make(map[job.Status]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}
	filtered := jobs[:0]
	for _, j := range jobs {
		if wanted[j.Status] {
			filtered = append(filtered, j)
		}
	}
	return filtered, nil
}

// Resume resets parked jobs back to pending.
func (d *Daemon) Resume(ctx context.Context, jobID string) (int, error) {
	return d.manager.Resume(ctx, jobID)
}

// ScanIntegrity audits job records against on-disk artifacts.
func (d *Daemon) ScanIntegrity(ctx context.Context) ([]orchestrator.JobHealth, error) {
	return d.manager.ScanIntegrity(ctx)
}

// DeleteJob removes a job by ID, optionally destroying its artifacts.
func (d *Daemon) DeleteJob(ctx context.Context, id string, removeArtifacts bool) error {
	j, err := d.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return d.store.Delete(ctx, j.FolderRef, removeArtifacts)
}

// TestNotification sends a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Orchestrator: d.manager.Status(ctx),
		OutputRoot:   d.store.Root(),
		LockFilePath: d.lockPath,
		HistoryPath:  d.cfg.HistoryDBPath(),
	}
}
