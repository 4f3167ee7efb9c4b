// Package watch notices job folders created in the output root by something
// other than the daemon, typically a network share drop or a manual mkdir. A
// folder qualifies once it contains a links.txt and no job record yet; the
// handler then adopts it.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"reelsmith/internal/job"
	"reelsmith/internal/logging"
)

// LinksFileName is the submission file a dropped folder must contain.
const LinksFileName = "links.txt"

// settleRetries x settleInterval bounds how long the watcher waits for a
// links file to appear after its folder does.
const (
	settleRetries  = 20
	settleInterval = 250 * time.Millisecond
)

// Handler adopts one discovered folder.
type Handler func(ctx context.Context, folderRef string) error

// Watcher monitors the output root for externally created job folders.
type Watcher struct {
	root    string
	handler Handler
	logger  *slog.Logger

	fs     *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// New constructs a watcher over the output root.
func New(root string, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher requires a handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		root:    root,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "folder-watch"),
	}, nil
}

// Start sweeps existing folders once, then follows filesystem events.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := fs.Add(w.root); err != nil {
		_ = fs.Close()
		w.mu.Unlock()
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.fs = fs
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	w.sweep(runCtx)
	go w.loop(runCtx)
	return nil
}

// Stop ends event processing and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	fs := w.fs
	w.running = false
	w.cancel = nil
	w.fs = nil
	w.mu.Unlock()

	cancel()
	_ = fs.Close()
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	w.mu.Lock()
	fs := w.fs
	w.mu.Unlock()
	if fs == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || !info.IsDir() {
				continue
			}
			w.wg.Add(1)
			go func(folderRef string) {
				defer w.wg.Done()
				w.awaitLinks(ctx, folderRef)
			}(event.Name)
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

// sweep adopts qualifying folders already present at startup.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.logger.Warn("initial sweep failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folderRef := filepath.Join(w.root, entry.Name())
		if qualifies(folderRef) {
			w.adopt(ctx, folderRef)
		}
	}
}

// awaitLinks polls a new folder for a links file; folder creation and file
// copy are separate operations on a network share.
func (w *Watcher) awaitLinks(ctx context.Context, folderRef string) {
	for attempt := 0; attempt < settleRetries; attempt++ {
		if qualifies(folderRef) {
			w.adopt(ctx, folderRef)
			return
		}
		if _, err := os.Stat(filepath.Join(folderRef, job.RecordFileName)); err == nil {
			// The daemon itself created this folder.
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(settleInterval):
		}
	}
}

func (w *Watcher) adopt(ctx context.Context, folderRef string) {
	if err := w.handler(ctx, folderRef); err != nil {
		w.logger.Warn("folder adoption failed",
			logging.String("folder", folderRef),
			logging.Error(err),
		)
		return
	}
	w.logger.Info("external folder adopted",
		logging.String("folder", folderRef),
		logging.String(logging.FieldEventType, "folder_adopted"),
	)
}

func qualifies(folderRef string) bool {
	if _, err := os.Stat(filepath.Join(folderRef, job.RecordFileName)); err == nil {
		return false
	}
	info, err := os.Stat(filepath.Join(folderRef, LinksFileName))
	return err == nil && !info.IsDir()
}
