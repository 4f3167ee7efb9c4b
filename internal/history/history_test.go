package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestRecorder(t *testing.T, retain int) *Recorder {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "history.db"), retain)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRecordAndRecent(t *testing.T) {
	r := openTestRecorder(t, 20)
	ctx := context.Background()

	first := Entry{JobID: "20260820-090000-aaaa", LinkCount: 3, ArtifactCount: 9, DurationMinutes: 12.5}
	second := Entry{JobID: "20260820-100000-bbbb", LinkCount: 1, ArtifactCount: 4, DurationMinutes: 6}
	if err := r.Record(ctx, first); err != nil {
		t.Fatalf("Record first: %v", err)
	}
	if err := r.Record(ctx, second); err != nil {
		t.Fatalf("Record second: %v", err)
	}

	entries, err := r.Recent(ctx)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].JobID != second.JobID {
		t.Fatalf("newest first expected, got %s", entries[0].JobID)
	}
	if entries[1].LinkCount != 3 || entries[1].DurationMinutes != 12.5 {
		t.Fatalf("entry fields lost: %+v", entries[1])
	}
	if entries[0].RecordedAt.IsZero() {
		t.Fatal("RecordedAt not persisted")
	}
}

func TestRetentionCap(t *testing.T) {
	r := openTestRecorder(t, 5)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		entry := Entry{
			JobID:           fmt.Sprintf("job-%02d", i),
			LinkCount:       i,
			DurationMinutes: float64(i),
			RecordedAt:      time.Date(2026, 8, 20, 9, i, 0, 0, time.UTC),
		}
		if err := r.Record(ctx, entry); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	entries, err := r.Recent(ctx)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("len(entries) = %d, want 5", len(entries))
	}
	if entries[0].JobID != "job-07" || entries[4].JobID != "job-03" {
		t.Fatalf("wrong rows survived: %s .. %s", entries[0].JobID, entries[4].JobID)
	}
}

func TestRecordRejectsMissingJobID(t *testing.T) {
	r := openTestRecorder(t, 5)
	if err := r.Record(context.Background(), Entry{}); err == nil {
		t.Fatal("expected error for missing job id")
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	r, err := Open(path, 5)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.Record(context.Background(), Entry{JobID: "persisted", LinkCount: 2, DurationMinutes: 4}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, 5)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	entries, err := reopened.Recent(context.Background())
	if err != nil {
		t.Fatalf("Recent after reopen: %v", err)
	}
	if len(entries) != 1 || entries[0].JobID != "persisted" {
		t.Fatalf("data lost across reopen: %+v", entries)
	}
}
