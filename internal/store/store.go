package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reelsmith/internal/job"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// jobSubdirs are created inside every job folder at creation time so stage
// executors always find their working directories in place.
var jobSubdirs = []string{"downloads", "srt", "images", "renders", "logs"}

// Store persists one JSON record per job folder under the output root. It is
// the single source of truth for job state; in-memory views are projections.
//
// While a job is being processed the orchestrator is the record's sole
// writer. External readers must treat the record as read-only until the job
// reaches a terminal or paused state.
type Store struct {
	root   string
	logger *slog.Logger
}

// New constructs a store rooted at the given output directory.
func New(root string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "store", "output root is not set", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	return &Store{root: root, logger: logging.NewComponentLogger(logger, "job-store")}, nil
}

// Root returns the output root directory.
func (s *Store) Root() string { return s.root }

// RecordPath returns the record document location for a job folder.
func RecordPath(folderRef string) string {
	return filepath.Join(folderRef, job.RecordFileName)
}

// Create persists a new job, allocating its folder and working
// subdirectories. The returned folder reference never changes afterwards.
func (s *Store) Create(ctx context.Context, j *job.Job) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if j == nil {
		return "", errors.New("job is nil")
	}
	folderRef := filepath.Join(s.root, j.ID)
	if _, err := os.Stat(folderRef); err == nil {
		return "", fmt.Errorf("job folder already exists: %s", folderRef)
	}
	if err := os.MkdirAll(folderRef, 0o755); err != nil {
		return "", fmt.Errorf("create job folder: %w", err)
	}
	for _, sub := range jobSubdirs {
		if err := os.MkdirAll(filepath.Join(folderRef, sub), 0o755); err != nil {
			return "", fmt.Errorf("create job subdirectory %s: %w", sub, err)
		}
	}
	j.FolderRef = folderRef
	if err := s.Write(ctx, folderRef, j); err != nil {
		return "", err
	}
	s.logger.Info("job created",
		logging.String(logging.FieldJobID, j.ID),
		logging.Int("link_count", j.LinkCount()),
		logging.String("folder", folderRef),
	)
	return folderRef, nil
}

// Adopt persists a job into an existing folder, used when a job folder was
// created externally and discovered by the watcher. Missing working
// subdirectories are created; an existing record is never overwritten.
func (s *Store) Adopt(ctx context.Context, folderRef string, j *job.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if j == nil {
		return errors.New("job is nil")
	}
	if _, err := os.Stat(RecordPath(folderRef)); err == nil {
		return fmt.Errorf("folder already holds a job record: %s", folderRef)
	}
	for _, sub := range jobSubdirs {
		if err := os.MkdirAll(filepath.Join(folderRef, sub), 0o755); err != nil {
			return fmt.Errorf("create job subdirectory %s: %w", sub, err)
		}
	}
	j.FolderRef = folderRef
	if err := s.Write(ctx, folderRef, j); err != nil {
		return err
	}
	s.logger.Info("external job folder adopted",
		logging.String(logging.FieldJobID, j.ID),
		logging.String("folder", folderRef),
	)
	return nil
}

// Read loads the job record from a folder reference.
func (s *Store) Read(ctx context.Context, folderRef string) (*job.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(RecordPath(folderRef))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "", "read", folderRef, err)
		}
		return nil, fmt.Errorf("read job record: %w", err)
	}
	j, err := job.Decode(data)
	if err != nil {
		return nil, services.Wrap(services.ErrCorruptRecord, "", "read", folderRef, err)
	}
	j.FolderRef = folderRef
	return j, nil
}

// Write overwrites the whole job record. Partial patching is deliberately
// unsupported so the on-disk shape never drifts from the in-memory one.
// The write is atomic: a temp file is renamed over the record.
func (s *Store) Write(ctx context.Context, folderRef string, j *job.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if j == nil {
		return errors.New("job is nil")
	}
	j.UpdatedAt = time.Now().UTC()
	data, err := job.Encode(j)
	if err != nil {
		return fmt.Errorf("encode job record: %w", err)
	}
	target := RecordPath(folderRef)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write job record: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit job record: %w", err)
	}
	return nil
}

// ScanAll enumerates every job folder under the root, FIFO by creation time.
// Corrupt or unreadable records are skipped and logged; one bad record must
// never block discovery of the others.
func (s *Store) ScanAll(ctx context.Context) ([]*job.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan output root: %w", err)
	}

	var jobs []*job.Job
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folderRef := filepath.Join(s.root, entry.Name())
		if _, err := os.Stat(RecordPath(folderRef)); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		j, err := s.Read(ctx, folderRef)
		if err != nil {
			s.logger.Warn("skipping unreadable job record",
				logging.String("folder", folderRef),
				logging.Error(err),
				logging.String(logging.FieldEventType, "corrupt_record_skipped"),
			)
			continue
		}
		jobs = append(jobs, j)
	}

	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
	return jobs, nil
}

// Get returns the job with the given identifier, or a not-found error.
func (s *Store) Get(ctx context.Context, id string) (*job.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, services.Wrap(services.ErrNotFound, "", "get", "empty job id", nil)
	}
	return s.Read(ctx, filepath.Join(s.root, id))
}

// Delete removes a job record. With removeArtifacts the whole job folder is
// destroyed; otherwise only the record document is removed and produced
// artifacts stay on disk.
func (s *Store) Delete(ctx context.Context, folderRef string, removeArtifacts bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(filepath.Clean(folderRef), filepath.Clean(s.root)+string(filepath.Separator)) {
		return fmt.Errorf("refusing to delete folder outside output root: %s", folderRef)
	}
	if removeArtifacts {
		if err := os.RemoveAll(folderRef); err != nil {
			return fmt.Errorf("remove job folder: %w", err)
		}
		return nil
	}
	if err := os.Remove(RecordPath(folderRef)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove job record: %w", err)
	}
	return nil
}
