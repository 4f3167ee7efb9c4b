package orchestrator

import (
	"context"
	"time"

	"reelsmith/internal/estimate"
	"reelsmith/internal/history"
	"reelsmith/internal/job"
	"reelsmith/internal/logging"
)

// StatusSummary is a lightweight snapshot of orchestrator state.
type StatusSummary struct {
	Running          bool
	LastError        string
	ActiveJobID      string
	ActiveStage      string
	ActiveSince      time.Time
	ActiveEstimate   float64
	StatusCounts     map[job.Status]int
	PendingEstimates map[string]float64
}

// Status reports the orchestrator's current view of the queue, including
// estimated minutes for the active and pending jobs.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:     m.running,
		ActiveStage: m.activeStage,
		ActiveSince: m.activeSince,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	var active *job.Job
	if m.active != nil {
		copied := *m.active
		active = &copied
		summary.ActiveJobID = copied.ID
	}
	m.mu.RUnlock()

	jobs, err := m.store.ScanAll(ctx)
	if err != nil {
		m.logger.Warn("status scan failed", logging.Error(err))
		return summary
	}

	var entries []history.Entry
	if m.recorder != nil {
		if recent, err := m.recorder.Recent(ctx); err == nil {
			entries = recent
		} else {
			m.logger.Debug("history unavailable for estimates", logging.Error(err))
		}
	}
	capMinutes := m.jobTimeout.Minutes()

	summary.StatusCounts = make(map[job.Status]int, len(job.AllStatuses()))
	summary.PendingEstimates = make(map[string]float64)
	for _, j := range jobs {
		summary.StatusCounts[j.Status]++
		if j.Status == job.StatusPending {
			summary.PendingEstimates[j.ID] = estimate.Estimate(j, entries, m.cfg.Estimator, capMinutes)
		}
	}
	if active != nil {
		summary.ActiveEstimate = estimate.Estimate(active, entries, m.cfg.Estimator, capMinutes)
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setActive(j *job.Job, since time.Time) {
	m.mu.Lock()
	if j != nil {
		copied := *j
		m.active = &copied
	} else {
		m.active = nil
		m.activeStage = ""
	}
	m.activeSince = since
	m.mu.Unlock()
}

func (m *Manager) setActiveStage(stage string) {
	m.mu.Lock()
	m.activeStage = stage
	m.mu.Unlock()
}

func (m *Manager) activeJobID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return ""
	}
	return m.active.ID
}
