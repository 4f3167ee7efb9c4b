package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	folders []string
}

func (r *recorder) handle(_ context.Context, folderRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.folders = append(r.folders, folderRef)
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.folders...)
}

func waitForAdoption(t *testing.T, r *recorder, want int) []string {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if seen := r.seen(); len(seen) >= want {
			return seen
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("adoption never happened, saw %v", r.seen())
	return nil
}

func TestWatcherAdoptsDroppedFolder(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	w, err := New(root, rec.handle, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	folder := filepath.Join(root, "dropped-job")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// The links file lands after the folder, as it would on a share.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(folder, LinksFileName), []byte("https://youtu.be/a\n"), 0o644); err != nil {
		t.Fatalf("write links: %v", err)
	}

	seen := waitForAdoption(t, rec, 1)
	if seen[0] != folder {
		t.Fatalf("adopted %q, want %q", seen[0], folder)
	}
}

func TestWatcherSweepsExistingFolders(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "already-there")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, LinksFileName), []byte("https://youtu.be/a\n"), 0o644); err != nil {
		t.Fatalf("write links: %v", err)
	}

	rec := &recorder{}
	w, err := New(root, rec.handle, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitForAdoption(t, rec, 1)
}

func TestWatcherIgnoresDaemonOwnedFolders(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	w, err := New(root, rec.handle, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	folder := filepath.Join(root, "daemon-job")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, "job.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	if seen := rec.seen(); len(seen) != 0 {
		t.Fatalf("daemon folder adopted: %v", seen)
	}
}
