package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusPaused  Status = "paused"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusDone,
	StatusError,
	StatusPaused,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Stage names, in pipeline order. Render depends on media, transcript-derived
// keywords, and images, so the order is fixed.
const (
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageScrape     = "scrape_images"
	StageRender     = "render"
)

// StageOrder returns the canonical pipeline order.
func StageOrder() []string {
	return []string{StageDownload, StageTranscribe, StageScrape, StageRender}
}

// Link is one source URL with its per-link processing flags.
type Link struct {
	URL            string `json:"url"`
	WantTranscript bool   `json:"wantTranscript"`
	WantImages     bool   `json:"wantImages"`
}

// Media is a downloaded source video produced by the download stage.
type Media struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Platform string `json:"platform"`
}

// Outputs holds the three canonical render products.
type Outputs struct {
	Landscape string `json:"landscape,omitempty"`
	Portrait  string `json:"portrait,omitempty"`
	Montage   string `json:"montage,omitempty"`
}

// Missing reports which of the three canonical outputs are absent.
func (o Outputs) Missing() []string {
	var missing []string
	if o.Landscape == "" {
		missing = append(missing, "landscape")
	}
	if o.Portrait == "" {
		missing = append(missing, "portrait")
	}
	if o.Montage == "" {
		missing = append(missing, "montage")
	}
	return missing
}

// Complete reports whether all three canonical outputs are present.
func (o Outputs) Complete() bool { return len(o.Missing()) == 0 }

// Artifacts maps each stage to the output references it has produced.
// Entries only grow; nothing removes them short of deleting the job.
type Artifacts struct {
	Download    []Media           `json:"download,omitempty"`
	Transcripts map[string]string `json:"transcribe,omitempty"`
	Keywords    []string          `json:"keywords,omitempty"`
	Images      []string          `json:"scrape_images,omitempty"`
	Render      Outputs           `json:"render,omitempty"`
}

// MediaFor returns the downloaded media for a link URL, if present.
func (a Artifacts) MediaFor(url string) (Media, bool) {
	for _, m := range a.Download {
		if m.URL == url {
			return m, true
		}
	}
	return Media{}, false
}

// TranscriptFor returns the transcript path keyed to a link URL, if present.
func (a Artifacts) TranscriptFor(url string) (string, bool) {
	if a.Transcripts == nil {
		return "", false
	}
	path, ok := a.Transcripts[url]
	return path, ok && path != ""
}

// SettingsSnapshot is the frozen copy of global configuration taken when the
// job is created. Later settings edits never alter a created job.
type SettingsSnapshot struct {
	MinImages    int    `json:"minImages"`
	WhisperModel string `json:"whisperModel"`
	UseGPU       bool   `json:"useGpu"`
	SoundsDir    string `json:"soundsFolder,omitempty"`
}

// Job is the unit of work. ID, CreatedAt, and FolderRef never change after
// creation; Links are immutable once the first stage begins.
type Job struct {
	ID              string           `json:"id"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"lastUpdated"`
	Links           []Link           `json:"links"`
	Status          Status           `json:"status"`
	ProgressPercent int              `json:"progressPercent"`
	ProgressMessage string           `json:"progressMessage,omitempty"`
	Artifacts       Artifacts        `json:"artifacts"`
	Settings        SettingsSnapshot `json:"settingsSnapshot"`
	Errors          []string         `json:"errors,omitempty"`

	// FolderRef is the absolute path of the job's folder. It is derived from
	// the record's location and never serialized into the record itself.
	FolderRef string `json:"-"`
}

// NewID assigns a job identifier: creation timestamp plus a random suffix.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102-150405"), suffix)
}

// New creates a pending job for the given links.
func New(links []Link, settings SettingsSnapshot, now time.Time) *Job {
	return &Job{
		ID:        NewID(now),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
		Links:     append([]Link(nil), links...),
		Status:    StatusPending,
		Settings:  settings,
	}
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status permits no further processing short
// of an explicit resume or delete.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// AppendError records a failure on the job. Entries accumulate across
// attempts and are never cleared automatically.
func (j *Job) AppendError(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	j.Errors = append(j.Errors, message)
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusError
	j.AppendError(message)
	j.ProgressMessage = message
}

// SetProgress updates the advisory progress fields.
func (j *Job) SetProgress(percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	j.ProgressPercent = percent
	j.ProgressMessage = message
}

// LinkCount returns the number of source links.
func (j *Job) LinkCount() int { return len(j.Links) }

// ArtifactCount returns the total number of produced artifact references,
// used by the history recorder.
func (j *Job) ArtifactCount() int {
	count := len(j.Artifacts.Download) + len(j.Artifacts.Transcripts) + len(j.Artifacts.Images)
	count += 3 - len(j.Artifacts.Render.Missing())
	return count
}

// DetectPlatform classifies a source URL by hosting platform.
func DetectPlatform(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "tiktok.com"):
		return "tiktok"
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return "youtube"
	case strings.Contains(lower, "instagram.com"):
		return "instagram"
	case strings.Contains(lower, "twitter.com"), strings.Contains(lower, "x.com"):
		return "twitter"
	default:
		return "other"
	}
}
