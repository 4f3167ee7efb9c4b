package ipc

import "time"

// StopRequest stops daemon processing; the active job is parked paused.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/orchestrator status information.
type StatusResponse struct {
	Running          bool               `json:"running"`
	LastError        string             `json:"last_error"`
	ActiveJobID      string             `json:"active_job_id"`
	ActiveStage      string             `json:"active_stage"`
	ActiveSince      time.Time          `json:"active_since"`
	ActiveEstimate   float64            `json:"active_estimate_minutes"`
	StatusCounts     map[string]int     `json:"status_counts"`
	PendingEstimates map[string]float64 `json:"pending_estimate_minutes"`
	OutputRoot       string             `json:"output_root"`
	LockPath         string             `json:"lock_path"`
	HistoryPath      string             `json:"history_path"`
	PID              int                `json:"pid"`
}

// JobSummary is the job DTO served to IPC callers.
type JobSummary struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	LinkCount       int       `json:"link_count"`
	ProgressPercent int       `json:"progress_percent"`
	ProgressMessage string    `json:"progress_message"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Folder          string    `json:"folder"`
	LastError       string    `json:"last_error"`
}

// ListRequest filters job listing by status.
type ListRequest struct {
	Statuses []string `json:"statuses"`
}

// ListResponse contains job summaries, oldest first.
type ListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// ResumeRequest resets parked jobs to pending. An empty JobID resets every
// qualifying job.
type ResumeRequest struct {
	JobID string `json:"job_id"`
}

// ResumeResponse reports how many jobs were reset.
type ResumeResponse struct {
	Reset int `json:"reset"`
}

// IntegrityRequest audits job records against on-disk artifacts.
type IntegrityRequest struct{}

// JobHealthReport is one job's integrity verdict.
type JobHealthReport struct {
	JobID   string   `json:"job_id"`
	Status  string   `json:"status"`
	Healthy bool     `json:"healthy"`
	Missing []string `json:"missing_stages"`
	Detail  string   `json:"detail"`
}

// IntegrityResponse contains per-job verdicts.
type IntegrityResponse struct {
	Results []JobHealthReport `json:"results"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
