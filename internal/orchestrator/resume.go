package orchestrator

import (
	"context"
	"fmt"

	"reelsmith/internal/job"
	"reelsmith/internal/logging"
	"reelsmith/internal/plan"
)

// Resume resets parked jobs back to pending so the run loop picks them up.
// Error and paused jobs qualify, as do running jobs left behind by a crash.
// With a job ID the reset is limited to that job; with an empty ID every
// qualifying job is reset. The number of jobs reset is returned.
func (m *Manager) Resume(ctx context.Context, jobID string) (int, error) {
	jobs, err := m.store.ScanAll(ctx)
	if err != nil {
		return 0, err
	}

	active := m.activeJobID()
	var reset int
	var found bool
	for _, j := range jobs {
		if jobID != "" && j.ID != jobID {
			continue
		}
		found = true
		if !resumable(j, active) {
			continue
		}
		j.Status = job.StatusPending
		j.ProgressMessage = "resumed"
		if err := m.store.Write(ctx, j.FolderRef, j); err != nil {
			return reset, fmt.Errorf("persist resume of %s: %w", j.ID, err)
		}
		m.logger.Info("job reset to pending",
			logging.String(logging.FieldJobID, j.ID),
			logging.String(logging.FieldEventType, "job_resumed"),
		)
		reset++
	}
	if jobID != "" && !found {
		return 0, fmt.Errorf("job not found: %s", jobID)
	}
	return reset, nil
}

// resumable reports whether a job can be reset. A running job only qualifies
// when it is not the one actively being processed; such a record is a crash
// leftover.
func resumable(j *job.Job, activeID string) bool {
	switch j.Status {
	case job.StatusError, job.StatusPaused:
		return true
	case job.StatusRunning:
		return j.ID != activeID
	default:
		return false
	}
}

// JobHealth is one job's integrity verdict.
type JobHealth struct {
	JobID   string
	Status  job.Status
	Healthy bool
	Missing []string
	Detail  string
}

// ScanIntegrity audits every job record against the artifacts actually on
// disk. A done job missing required artifacts is flagged; pending and parked
// jobs report what still remains.
func (m *Manager) ScanIntegrity(ctx context.Context) ([]JobHealth, error) {
	jobs, err := m.store.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]JobHealth, 0, len(jobs))
	for _, j := range jobs {
		missing := plan.MissingStages(j, j.Settings.MinImages)
		health := JobHealth{
			JobID:   j.ID,
			Status:  j.Status,
			Missing: missing,
			Healthy: true,
		}
		if j.Status == job.StatusDone && len(missing) > 0 {
			health.Healthy = false
			health.Detail = "done job is missing artifacts"
		}
		results = append(results, health)
	}
	return results, nil
}
