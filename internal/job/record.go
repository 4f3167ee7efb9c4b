package job

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// RecordFileName is the fixed name of the job record inside a job folder.
const RecordFileName = "job.json"

// recordEnvelope is the on-disk shape of a job record. It carries both the
// current fields and every legacy spelling the original application used, so
// old records keep loading. Unknown fields are ignored on read.
type recordEnvelope struct {
	ID              string           `json:"id"`
	CreatedAt       *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time       `json:"lastUpdated,omitempty"`
	Links           json.RawMessage  `json:"links,omitempty"`
	Status          string           `json:"status"`
	ProgressPercent int              `json:"progressPercent"`
	ProgressMessage string           `json:"progressMessage,omitempty"`
	Artifacts       *Artifacts       `json:"artifacts,omitempty"`
	Settings        SettingsSnapshot `json:"settingsSnapshot"`
	Errors          []string         `json:"errors,omitempty"`

	// Legacy fields, migrated on read and never written back.
	LegacyProgress    *int              `json:"progress,omitempty"`
	LegacyDownloads   []Media           `json:"downloadedVideos,omitempty"`
	LegacySRTFiles    []string          `json:"srtFiles,omitempty"`
	LegacyKeywords    []string          `json:"keywords,omitempty"`
	LegacyImages      []string          `json:"images,omitempty"`
	LegacyOutputs     map[string]string `json:"outputs,omitempty"`
	LegacyGenerateSRT *bool             `json:"generateSrt,omitempty"`
	LegacyError       string            `json:"error,omitempty"`
}

// Encode serializes a job to its record document.
func Encode(j *Job) ([]byte, error) {
	envelope := recordEnvelope{
		ID:              j.ID,
		CreatedAt:       &j.CreatedAt,
		UpdatedAt:       &j.UpdatedAt,
		Status:          string(j.Status),
		ProgressPercent: j.ProgressPercent,
		ProgressMessage: j.ProgressMessage,
		Artifacts:       &j.Artifacts,
		Settings:        j.Settings,
		Errors:          j.Errors,
	}
	links, err := json.Marshal(j.Links)
	if err != nil {
		return nil, fmt.Errorf("marshal links: %w", err)
	}
	envelope.Links = links
	return json.MarshalIndent(envelope, "", "  ")
}

// Decode parses a record document, migrating legacy field spellings at this
// boundary so nothing outside the codec ever sees them.
func Decode(data []byte) (*Job, error) {
	var envelope recordEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse job record: %w", err)
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return nil, fmt.Errorf("job record missing id")
	}

	status, ok := migrateStatus(envelope.Status)
	if !ok {
		return nil, fmt.Errorf("job record has unknown status %q", envelope.Status)
	}

	links, err := decodeLinks(envelope.Links, envelope.LegacyGenerateSRT)
	if err != nil {
		return nil, err
	}

	j := &Job{
		ID:              envelope.ID,
		Links:           links,
		Status:          status,
		ProgressPercent: envelope.ProgressPercent,
		ProgressMessage: envelope.ProgressMessage,
		Settings:        envelope.Settings,
		Errors:          envelope.Errors,
	}
	if envelope.CreatedAt != nil {
		j.CreatedAt = envelope.CreatedAt.UTC()
	}
	if envelope.UpdatedAt != nil {
		j.UpdatedAt = envelope.UpdatedAt.UTC()
	}
	if envelope.Artifacts != nil {
		j.Artifacts = *envelope.Artifacts
	}
	if envelope.LegacyProgress != nil && envelope.ProgressPercent == 0 {
		j.ProgressPercent = *envelope.LegacyProgress
	}
	if envelope.LegacyError != "" {
		j.AppendError(envelope.LegacyError)
	}

	migrateLegacyArtifacts(j, &envelope)
	return j, nil
}

// migrateStatus maps the original application's status values onto the
// current vocabulary.
func migrateStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "queued":
		return StatusPending, true
	case "processing":
		return StatusRunning, true
	}
	return ParseStatus(value)
}

// decodeLinks accepts both the current []Link shape and the legacy plain
// []string URL list. Legacy links inherit the record-level generateSrt flag
// and always request images, matching the original pipeline.
func decodeLinks(raw json.RawMessage, legacyGenerateSRT *bool) ([]Link, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var links []Link
	if err := json.Unmarshal(raw, &links); err == nil {
		return links, nil
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil, fmt.Errorf("parse links: %w", err)
	}
	wantTranscript := true
	if legacyGenerateSRT != nil {
		wantTranscript = *legacyGenerateSRT
	}
	links = make([]Link, 0, len(urls))
	for _, url := range urls {
		links = append(links, Link{URL: url, WantTranscript: wantTranscript, WantImages: true})
	}
	return links, nil
}

func migrateLegacyArtifacts(j *Job, envelope *recordEnvelope) {
	if len(envelope.LegacyDownloads) > 0 && len(j.Artifacts.Download) == 0 {
		j.Artifacts.Download = envelope.LegacyDownloads
	}
	if len(envelope.LegacyKeywords) > 0 && len(j.Artifacts.Keywords) == 0 {
		j.Artifacts.Keywords = envelope.LegacyKeywords
	}
	if len(envelope.LegacyImages) > 0 && len(j.Artifacts.Images) == 0 {
		j.Artifacts.Images = envelope.LegacyImages
	}
	if len(envelope.LegacySRTFiles) > 0 && len(j.Artifacts.Transcripts) == 0 {
		j.Artifacts.Transcripts = migrateLegacyTranscripts(envelope.LegacySRTFiles, j.Artifacts.Download)
	}
	if len(envelope.LegacyOutputs) > 0 {
		migrateLegacyOutputs(&j.Artifacts.Render, envelope.LegacyOutputs)
	}
}

// migrateLegacyTranscripts keys an unkeyed transcript list by link URL where
// a downloaded video shares the transcript's base name. Unmatched paths keep
// the path itself as the key so the artifact is never dropped.
func migrateLegacyTranscripts(paths []string, downloads []Media) map[string]string {
	transcripts := make(map[string]string, len(paths))
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		key := path
		stem := fileStem(path)
		for _, media := range downloads {
			if fileStem(media.Path) == stem {
				key = media.URL
				break
			}
		}
		transcripts[key] = path
	}
	return transcripts
}

func migrateLegacyOutputs(outputs *Outputs, legacy map[string]string) {
	for name, path := range legacy {
		if strings.TrimSpace(path) == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "landscape", "slideshow":
			if outputs.Landscape == "" {
				outputs.Landscape = path
			}
		case "portrait":
			if outputs.Portrait == "" {
				outputs.Portrait = path
			}
		case "montage", "youtubemix", "youtube_mix":
			if outputs.Montage == "" {
				outputs.Montage = path
			}
		}
	}
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
