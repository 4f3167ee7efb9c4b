package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelsmith/internal/history"
	"reelsmith/internal/job"
	"reelsmith/internal/logging"
	"reelsmith/internal/plan"
	"reelsmith/internal/services"
	"reelsmith/internal/stageexec"
)

// persistThrottle bounds how often progress updates are flushed to disk.
const persistThrottle = 2 * time.Second

// processJob runs one job to a settled state: done, error, or paused. The
// three interruption sources are raced through contexts: the job timeout
// produces an error outcome, a daemon stop produces a paused outcome.
func (m *Manager) processJob(ctx context.Context, j *job.Job) error {
	logger := m.logger.With(logging.String(logging.FieldJobID, j.ID))
	started := time.Now()

	j.Status = job.StatusRunning
	j.SetProgress(0, "starting")
	if err := m.store.Write(ctx, j.FolderRef, j); err != nil {
		return fmt.Errorf("persist running transition: %w", err)
	}
	m.setActive(j, started)
	defer m.setActive(nil, time.Time{})

	if err := m.notifier.NotifyJobStarted(ctx, j.ID, j.LinkCount()); err != nil {
		logger.Debug("start notification failed", logging.Error(err))
	}

	jobCtx, cancel := context.WithTimeout(ctx, m.jobTimeout)
	defer cancel()

	guardDone := make(chan struct{})
	go m.watchGuard(jobCtx, logger, guardDone)

	runErr := m.runStages(jobCtx, logger, j)
	cancel()
	<-guardDone

	elapsed := time.Since(started)
	switch {
	case runErr == nil:
		j.Status = job.StatusDone
		j.SetProgress(100, "complete")
		if err := m.store.Write(ctx, j.FolderRef, j); err != nil {
			return fmt.Errorf("persist completion: %w", err)
		}
		m.recordHistory(ctx, logger, j, elapsed)
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.Duration("elapsed", elapsed),
		)
		if err := m.notifier.NotifyJobCompleted(ctx, j.ID, j.LinkCount(), elapsed); err != nil {
			logger.Debug("completion notification failed", logging.Error(err))
		}
		return nil

	case errors.Is(runErr, context.DeadlineExceeded) && ctx.Err() == nil:
		message := fmt.Sprintf("timed out after %s", m.jobTimeout)
		j.SetFailed(stampedError(message))
		if err := m.store.Write(ctx, j.FolderRef, j); err != nil {
			logger.Error("failed to persist timeout", logging.Error(err))
		}
		m.recordHistory(ctx, logger, j, elapsed)
		logger.Error("job timed out",
			logging.String(logging.FieldEventType, "job_timeout"),
			logging.Duration("elapsed", elapsed),
		)
		if err := m.notifier.NotifyJobFailed(ctx, j.ID, message); err != nil {
			logger.Debug("failure notification failed", logging.Error(err))
		}
		return services.Wrap(services.ErrTimeout, "", "process", message, runErr)

	case ctx.Err() != nil:
		// Daemon stop: park the job so resume can pick it back up.
		j.Status = job.StatusPaused
		j.ProgressMessage = "paused"
		persistCtx, persistCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer persistCancel()
		if err := m.store.Write(persistCtx, j.FolderRef, j); err != nil {
			logger.Error("failed to persist pause", logging.Error(err))
		}
		logger.Info("job paused by stop",
			logging.String(logging.FieldEventType, "job_paused"),
			logging.Duration("elapsed", elapsed),
		)
		return context.Canceled

	default:
		details := services.Details(runErr)
		message := strings.TrimSpace(details.Message)
		if message == "" {
			message = runErr.Error()
		}
		j.SetFailed(stampedError(message))
		if err := m.store.Write(ctx, j.FolderRef, j); err != nil {
			logger.Error("failed to persist failure", logging.Error(err))
		}
		m.recordHistory(ctx, logger, j, elapsed)
		logger.Error("job failed",
			logging.String(logging.FieldEventType, "job_failure"),
			logging.String(logging.FieldStage, details.Stage),
			logging.String("error_message", message),
			logging.Error(runErr),
		)
		if err := m.notifier.NotifyJobFailed(ctx, j.ID, message); err != nil {
			logger.Debug("failure notification failed", logging.Error(err))
		}
		return runErr
	}
}

// runStages executes the job's missing stages in order, reconciling
// artifacts after each one. The plan is recomputed every iteration so work
// already on disk is never redone.
func (m *Manager) runStages(ctx context.Context, logger *slog.Logger, j *job.Job) error {
	initial := plan.MissingStages(j, j.Settings.MinImages)
	total := len(initial)
	if total == 0 {
		return nil
	}

	for completed := 0; ; completed++ {
		missing := plan.MissingStages(j, j.Settings.MinImages)
		if len(missing) == 0 {
			return nil
		}
		stage := missing[0]
		m.setActiveStage(stage)

		base := completed * 100 / total
		span := 100 / total
		onProgress := func(percent int, message string) {
			j.SetProgress(base+percent*span/100, message)
			m.persistThrottled(ctx, j)
		}

		err := stageexec.Invoke(ctx, stageexec.Request{
			Stage:      stage,
			Command:    m.cfg.StageCommand(stage),
			Job:        j,
			Logger:     m.logger,
			OnProgress: onProgress,
		})
		if err != nil {
			return err
		}

		if err := stageexec.CollectArtifacts(j); err != nil {
			return services.Wrap(services.ErrStageFailure, stage, "collect", "reconcile artifacts", err)
		}
		j.SetProgress(base+span, stageLabel(stage)+" complete")
		if err := m.store.Write(ctx, j.FolderRef, j); err != nil {
			return fmt.Errorf("persist stage result: %w", err)
		}

		if stageStillMissing(j, stage) {
			return services.Wrap(services.ErrStageFailure, stage, "verify",
				"completed without producing required artifacts", nil)
		}
	}
}

// watchGuard samples system pressure while a job runs. Readings are advisory
// here; a running job is never interrupted by the guard.
func (m *Manager) watchGuard(ctx context.Context, logger *slog.Logger, done chan<- struct{}) {
	defer close(done)
	interval := m.guardPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := m.guard.Check(ctx)
			if len(report.Reasons) == 0 {
				continue
			}
			logger.Warn("system pressure during job",
				logging.String(logging.FieldEventType, "guard_warning"),
				logging.String("reasons", strings.Join(report.Reasons, "; ")),
				logging.Float64("disk_free_gb", report.Snapshot.DiskFreeGB),
				logging.Float64("cpu_percent", report.Snapshot.CPUPercent),
			)
		}
	}
}

// stampedError timestamps a failure message so the persisted error record
// shows when the attempt ended.
func stampedError(message string) string {
	return fmt.Sprintf("%s [%s]", message, time.Now().UTC().Format(time.RFC3339))
}

// recordHistory logs the run's duration. Both successful and failed
// completions count; a paused job is not a completion.
func (m *Manager) recordHistory(ctx context.Context, logger *slog.Logger, j *job.Job, elapsed time.Duration) {
	if m.recorder == nil {
		return
	}
	entry := history.Entry{
		JobID:           j.ID,
		LinkCount:       j.LinkCount(),
		ArtifactCount:   j.ArtifactCount(),
		DurationMinutes: elapsed.Minutes(),
		RecordedAt:      time.Now().UTC(),
	}
	if err := m.recorder.Record(ctx, entry); err != nil {
		logger.Warn("history record failed", logging.Error(err))
	}
}

// persistThrottled writes the record at most once per throttle window, so
// chatty progress output does not hammer the disk.
func (m *Manager) persistThrottled(ctx context.Context, j *job.Job) {
	m.mu.Lock()
	if time.Since(m.lastPersist) < persistThrottle {
		m.mu.Unlock()
		return
	}
	m.lastPersist = time.Now()
	m.mu.Unlock()

	if err := m.store.Write(ctx, j.FolderRef, j); err != nil {
		m.logger.Debug("progress persist failed", logging.Error(err))
	}
}

func stageStillMissing(j *job.Job, stage string) bool {
	for _, missing := range plan.MissingStages(j, j.Settings.MinImages) {
		if missing == stage {
			return true
		}
	}
	return false
}

func stageLabel(stage string) string {
	return strings.ReplaceAll(stage, "_", " ")
}
