package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"reelsmith/internal/job"
	"reelsmith/internal/logging"
	"reelsmith/internal/plan"
)

// Start reconciles crash leftovers and begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("orchestrator already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if err := m.reconcile(runCtx); err != nil {
		m.logger.Warn("startup reconciliation incomplete",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output root permissions"),
		)
	}

	go m.runLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for the active job to be
// parked. A job interrupted here is persisted as paused, not failed.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// reconcile demotes jobs left in the running state by a crashed process back
// to pending. Error and paused jobs stay as they are until an explicit
// resume.
func (m *Manager) reconcile(ctx context.Context) error {
	jobs, err := m.store.ScanAll(ctx)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if j.Status != job.StatusRunning {
			continue
		}
		j.Status = job.StatusPending
		j.ProgressMessage = "recovered after restart"
		if err := m.store.Write(ctx, j.FolderRef, j); err != nil {
			return err
		}
		m.logger.Info("stale running job demoted to pending",
			logging.String(logging.FieldJobID, j.ID),
			logging.String(logging.FieldEventType, "job_recovered"),
		)
	}
	return nil
}

func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		next, err := m.nextPending(ctx)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to scan for pending jobs",
				logging.Error(err),
				logging.String(logging.FieldEventType, "scan_failed"),
			)
			m.sleep(ctx, m.errorRetryInterval)
			continue
		}
		if next == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		if !m.admit(ctx, next) {
			m.sleep(ctx, m.errorRetryInterval)
			continue
		}

		if err := m.processJob(ctx, next); err != nil && !errors.Is(err, context.Canceled) {
			m.setLastError(err)
		}
	}
}

// nextPending returns the oldest pending job, or nil when the queue is idle.
func (m *Manager) nextPending(ctx context.Context) (*job.Job, error) {
	jobs, err := m.store.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.Status != job.StatusPending {
			continue
		}
		if plan.Complete(j, j.Settings.MinImages) {
			// Nothing to do: promote straight to done.
			j.Status = job.StatusDone
			j.SetProgress(100, "complete")
			if err := m.store.Write(ctx, j.FolderRef, j); err != nil {
				return nil, err
			}
			m.logger.Info("job already complete",
				logging.String(logging.FieldJobID, j.ID),
			)
			continue
		}
		return j, nil
	}
	return nil, nil
}

// admit runs the system guard ahead of a job. An unsafe reading is always
// logged; it only blocks the job when enforcement is on.
func (m *Manager) admit(ctx context.Context, j *job.Job) bool {
	report := m.guard.Check(ctx)
	if report.Safe && len(report.Reasons) == 0 {
		return true
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldJobID, j.ID),
		logging.String("reasons", strings.Join(report.Reasons, "; ")),
		logging.Float64("disk_free_gb", report.Snapshot.DiskFreeGB),
		logging.Float64("cpu_percent", report.Snapshot.CPUPercent),
	}
	if report.Safe {
		m.logger.Warn("system pressure noted, continuing", logging.Args(attrs...)...)
		return true
	}
	if m.guard.Enforced() {
		m.logger.Warn("system unsafe, job admission deferred", logging.Args(attrs...)...)
		return false
	}
	m.logger.Warn("system unsafe, continuing without enforcement", logging.Args(attrs...)...)
	return true
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
