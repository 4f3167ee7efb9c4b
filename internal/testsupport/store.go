package testsupport

import (
	"context"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/history"
	"reelsmith/internal/job"
	"reelsmith/internal/store"
)

// MustStore opens a job store rooted at the config's output root.
func MustStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()
	s, err := store.New(cfg.Paths.OutputRoot, nil)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	return s
}

// MustRecorder opens a history recorder under the config's log dir.
func MustRecorder(t testing.TB, cfg *config.Config) *history.Recorder {
	t.Helper()
	r, err := history.Open(cfg.HistoryDBPath(), cfg.Estimator.HistoryRetainCount)
	if err != nil {
		t.Fatalf("open history recorder: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// SeedJob creates a persisted pending job with the given links.
func SeedJob(t testing.TB, s *store.Store, cfg *config.Config, links []job.Link) *job.Job {
	t.Helper()
	j := job.New(links, job.SettingsSnapshot{
		MinImages:    cfg.Stages.MinImages,
		WhisperModel: cfg.Stages.WhisperModel,
		UseGPU:       cfg.Stages.UseGPU,
		SoundsDir:    cfg.Paths.SoundsDir,
	}, time.Now())
	if _, err := s.Create(context.Background(), j); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return j
}
