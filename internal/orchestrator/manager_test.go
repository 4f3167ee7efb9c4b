package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/job"
	"reelsmith/internal/notifications"
	"reelsmith/internal/store"
	"reelsmith/internal/testsupport"
)

// completingScripts produce every artifact the plan requires, so a job runs
// straight through to done.
func completingScripts() map[string]string {
	return map[string]string{
		"download":      `: > downloads/001_clip.mp4`,
		"transcribe":    `: > srt/001_clip.srt`,
		"scrape_images": `: > images/a.jpg; : > images/b.jpg`,
		"render": `printf x > renders/output_landscape.mp4
printf x > renders/output_portrait.mp4
printf x > renders/output_montage.mp4`,
	}
}

func waitForStatus(t *testing.T, s *store.Store, folderRef string, want job.Status, timeout time.Duration) *job.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		j, err := s.Read(context.Background(), folderRef)
		if err == nil && j.Status == want {
			return j
		}
		time.Sleep(25 * time.Millisecond)
	}
	j, err := s.Read(context.Background(), folderRef)
	if err != nil {
		t.Fatalf("job unreadable while waiting for %s: %v", want, err)
	}
	t.Fatalf("job never reached %s, stuck at %s (%s)", want, j.Status, j.ProgressMessage)
	return nil
}

func TestJobRunsToCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStageScripts(completingScripts()),
		testsupport.WithMinImages(2),
	)
	s := testsupport.MustStore(t, cfg)
	recorder := testsupport.MustRecorder(t, cfg)
	j := testsupport.SeedJob(t, s, cfg, []job.Link{
		{URL: "https://youtube.com/watch?v=a", WantTranscript: true, WantImages: true},
	})

	m := NewManager(cfg, s, recorder, notifications.Noop(), nil,
		WithPollInterval(25*time.Millisecond))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	done := waitForStatus(t, s, j.FolderRef, job.StatusDone, 10*time.Second)
	if done.ProgressPercent != 100 {
		t.Fatalf("progress = %d", done.ProgressPercent)
	}
	if _, ok := done.Artifacts.MediaFor(j.Links[0].URL); !ok {
		t.Fatalf("download artifact missing: %+v", done.Artifacts)
	}
	if _, ok := done.Artifacts.TranscriptFor(j.Links[0].URL); !ok {
		t.Fatal("transcript artifact missing")
	}
	if len(done.Artifacts.Images) != 2 || !done.Artifacts.Render.Complete() {
		t.Fatalf("artifacts incomplete: %+v", done.Artifacts)
	}

	entries, err := recorder.Recent(context.Background())
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].JobID != j.ID {
		t.Fatalf("history not recorded: %+v", entries)
	}
}

func TestTimeoutMarksJobError(t *testing.T) {
	scripts := completingScripts()
	scripts["download"] = `sleep 30`
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(scripts), testsupport.WithMinImages(2))
	s := testsupport.MustStore(t, cfg)
	j := testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=a"}})

	m := NewManager(cfg, s, nil, notifications.Noop(), nil,
		WithPollInterval(25*time.Millisecond),
		WithJobTimeout(300*time.Millisecond))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	failed := waitForStatus(t, s, j.FolderRef, job.StatusError, 10*time.Second)
	if len(failed.Errors) == 0 || !strings.Contains(failed.Errors[0], "timed out") {
		t.Fatalf("errors = %v", failed.Errors)
	}
}

func TestStopPausesActiveJob(t *testing.T) {
	scripts := completingScripts()
	scripts["download"] = `sleep 30`
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(scripts), testsupport.WithMinImages(2))
	s := testsupport.MustStore(t, cfg)
	j := testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=a"}})

	m := NewManager(cfg, s, nil, notifications.Noop(), nil,
		WithPollInterval(25*time.Millisecond))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitForStatus(t, s, j.FolderRef, job.StatusRunning, 10*time.Second)
	m.Stop()

	paused, err := s.Read(context.Background(), j.FolderRef)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if paused.Status != job.StatusPaused {
		t.Fatalf("status = %s, want paused", paused.Status)
	}
	if len(paused.Errors) != 0 {
		t.Fatalf("stop must not record errors: %v", paused.Errors)
	}
}

func TestStageFailureMarksJobError(t *testing.T) {
	scripts := completingScripts()
	scripts["scrape_images"] = `echo "search failed for keyword" >&2; exit 2`
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(scripts), testsupport.WithMinImages(2))
	s := testsupport.MustStore(t, cfg)
	j := testsupport.SeedJob(t, s, cfg, []job.Link{
		{URL: "https://youtube.com/watch?v=a", WantImages: true},
	})

	m := NewManager(cfg, s, nil, notifications.Noop(), nil,
		WithPollInterval(25*time.Millisecond))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	failed := waitForStatus(t, s, j.FolderRef, job.StatusError, 10*time.Second)
	if len(failed.Errors) == 0 || !strings.Contains(failed.Errors[0], "search failed") {
		t.Fatalf("errors = %v", failed.Errors)
	}
	// Artifacts produced before the failure survive.
	if _, ok := failed.Artifacts.MediaFor(j.Links[0].URL); !ok {
		t.Fatal("download artifact lost on failure")
	}
}

func TestDoneJobKeepsErrorSignals(t *testing.T) {
	scripts := completingScripts()
	scripts["scrape_images"] = `echo "ERROR: thumbnail fetch failed" >&2
: > images/a.jpg; : > images/b.jpg`
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(scripts), testsupport.WithMinImages(2))
	s := testsupport.MustStore(t, cfg)
	j := testsupport.SeedJob(t, s, cfg, []job.Link{
		{URL: "https://youtube.com/watch?v=a", WantTranscript: true, WantImages: true},
	})

	m := NewManager(cfg, s, nil, notifications.Noop(), nil,
		WithPollInterval(25*time.Millisecond))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	done := waitForStatus(t, s, j.FolderRef, job.StatusDone, 10*time.Second)
	if len(done.Errors) != 1 || !strings.Contains(done.Errors[0], "thumbnail fetch failed") {
		t.Fatalf("errors = %v, want the stderr signal kept on a done job", done.Errors)
	}
}

func TestFailedJobRecordsHistory(t *testing.T) {
	scripts := completingScripts()
	scripts["download"] = `echo "ERROR: fetch failed" >&2; exit 1`
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(scripts), testsupport.WithMinImages(2))
	s := testsupport.MustStore(t, cfg)
	recorder := testsupport.MustRecorder(t, cfg)
	j := testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=a"}})

	m := NewManager(cfg, s, recorder, notifications.Noop(), nil,
		WithPollInterval(25*time.Millisecond))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	waitForStatus(t, s, j.FolderRef, job.StatusError, 10*time.Second)

	// The record lands just after the error status is persisted.
	deadline := time.Now().Add(5 * time.Second)
	for {
		entries, err := recorder.Recent(context.Background())
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(entries) == 1 {
			if entries[0].JobID != j.ID {
				t.Fatalf("history entry for wrong job: %+v", entries[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("failed job left no history entry: %+v", entries)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestReconcileDemotesStaleRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(completingScripts()))
	s := testsupport.MustStore(t, cfg)
	ctx := context.Background()

	j := testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=a"}})
	j.Status = job.StatusRunning
	if err := s.Write(ctx, j.FolderRef, j); err != nil {
		t.Fatalf("Write: %v", err)
	}
	failed := testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=b"}})
	failed.SetFailed("old failure")
	if err := s.Write(ctx, failed.FolderRef, failed); err != nil {
		t.Fatalf("Write: %v", err)
	}

	m := NewManager(cfg, s, nil, notifications.Noop(), nil)
	if err := m.reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	recovered, err := s.Read(ctx, j.FolderRef)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if recovered.Status != job.StatusPending {
		t.Fatalf("stale running job = %s, want pending", recovered.Status)
	}
	untouched, err := s.Read(ctx, failed.FolderRef)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if untouched.Status != job.StatusError {
		t.Fatalf("error job must stay put, got %s", untouched.Status)
	}
}

func TestResumeResetsParkedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(completingScripts()))
	s := testsupport.MustStore(t, cfg)
	ctx := context.Background()

	errored := testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=a"}})
	errored.SetFailed("boom")
	if err := s.Write(ctx, errored.FolderRef, errored); err != nil {
		t.Fatalf("Write: %v", err)
	}
	paused := testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=b"}})
	paused.Status = job.StatusPaused
	if err := s.Write(ctx, paused.FolderRef, paused); err != nil {
		t.Fatalf("Write: %v", err)
	}
	done := testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=c"}})
	done.Status = job.StatusDone
	if err := s.Write(ctx, done.FolderRef, done); err != nil {
		t.Fatalf("Write: %v", err)
	}

	m := NewManager(cfg, s, nil, notifications.Noop(), nil)
	reset, err := m.Resume(ctx, "")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if reset != 2 {
		t.Fatalf("reset = %d, want 2", reset)
	}

	for _, folderRef := range []string{errored.FolderRef, paused.FolderRef} {
		j, err := s.Read(ctx, folderRef)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if j.Status != job.StatusPending {
			t.Fatalf("job %s = %s, want pending", j.ID, j.Status)
		}
	}
	unchanged, _ := s.Read(ctx, done.FolderRef)
	if unchanged.Status != job.StatusDone {
		t.Fatalf("done job must not reset, got %s", unchanged.Status)
	}
	// Error history survives the reset.
	rescanned, _ := s.Read(ctx, errored.FolderRef)
	if len(rescanned.Errors) != 1 {
		t.Fatalf("errors cleared on resume: %v", rescanned.Errors)
	}

	if _, err := m.Resume(ctx, "no-such-job"); err == nil {
		t.Fatal("resume of unknown job should fail")
	}
}

func TestScanIntegrityFlagsIncompleteDoneJob(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(completingScripts()))
	s := testsupport.MustStore(t, cfg)
	ctx := context.Background()

	bad := testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=a"}})
	bad.Status = job.StatusDone
	if err := s.Write(ctx, bad.FolderRef, bad); err != nil {
		t.Fatalf("Write: %v", err)
	}

	m := NewManager(cfg, s, nil, notifications.Noop(), nil)
	results, err := m.ScanIntegrity(ctx)
	if err != nil {
		t.Fatalf("ScanIntegrity: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Healthy {
		t.Fatal("done job with no artifacts must be flagged")
	}
	if len(results[0].Missing) == 0 {
		t.Fatal("missing stages not reported")
	}
}

func TestEmptyLinksJobPromotedToDone(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(completingScripts()))
	s := testsupport.MustStore(t, cfg)
	ctx := context.Background()

	j := testsupport.SeedJob(t, s, cfg, nil)
	m := NewManager(cfg, s, nil, notifications.Noop(), nil)

	next, err := m.nextPending(ctx)
	if err != nil {
		t.Fatalf("nextPending: %v", err)
	}
	if next != nil {
		t.Fatalf("empty job offered for processing: %+v", next)
	}
	promoted, err := s.Read(ctx, j.FolderRef)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if promoted.Status != job.StatusDone {
		t.Fatalf("status = %s, want done", promoted.Status)
	}
}

func TestStatusSummary(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStageScripts(completingScripts()))
	s := testsupport.MustStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedJob(t, s, cfg, []job.Link{{URL: "https://youtube.com/watch?v=a", WantTranscript: true}})

	m := NewManager(cfg, s, nil, notifications.Noop(), nil)
	summary := m.Status(ctx)
	if summary.Running {
		t.Fatal("manager not started, Running should be false")
	}
	if summary.StatusCounts[job.StatusPending] != 1 {
		t.Fatalf("counts = %+v", summary.StatusCounts)
	}
	if len(summary.PendingEstimates) != 1 {
		t.Fatalf("estimates = %+v", summary.PendingEstimates)
	}
	for _, minutes := range summary.PendingEstimates {
		if minutes <= 0 || minutes > float64(cfg.Workflow.JobTimeoutMinutes) {
			t.Fatalf("estimate out of range: %.2f", minutes)
		}
	}
}
