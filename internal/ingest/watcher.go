package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/config"
)

// Watcher turns verdict-file arrivals into project wakeups so the daemon
// can react to fresh imagery between polls. Events are debounced per
// project; uploads tend to land in bursts.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	projects map[string]string // verdict dir → project ID
	pending  map[string]time.Time
	debounce time.Duration
	notify   chan string
	log      *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher over every configured verdict directory.
func NewWatcher(cfg *config.Config, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	projects := make(map[string]string)
	for _, p := range cfg.Projects {
		if p.VerdictDir != "" {
			projects[filepath.Clean(p.VerdictDir)] = p.ID
		}
	}

	return &Watcher{
		watcher:  fsw,
		projects: projects,
		pending:  make(map[string]time.Time),
		debounce: 500 * time.Millisecond,
		notify:   make(chan string, 16),
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// C delivers project IDs whose verdict directories saw fresh files.
func (w *Watcher) C() <-chan string {
	return w.notify
}

// Start begins watching. Non-blocking; the event loop runs in its own
// goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for dir, projectID := range w.projects {
		if err := os.MkdirAll(dir, 0755); err != nil {
			w.log.Warn("failed to create verdict directory",
				zap.String("dir", dir),
				zap.Error(err))
		}
		if err := w.watcher.Add(dir); err != nil {
			w.log.Warn("failed to watch verdict directory",
				zap.String("dir", dir),
				zap.String("project", projectID),
				zap.Error(err))
			continue
		}
		w.log.Debug("watching verdict directory",
			zap.String("dir", dir),
			zap.String("project", projectID))
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Warn("error closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	flush := time.NewTicker(100 * time.Millisecond)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-flush.C:
			w.flushPending()
		}
	}
}

// handleEvent records a debounced wakeup for the project owning the file.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".json") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	projectID, ok := w.projects[filepath.Clean(filepath.Dir(event.Name))]
	if !ok {
		return
	}

	w.mu.Lock()
	w.pending[projectID] = time.Now()
	w.mu.Unlock()
}

// flushPending delivers wakeups whose debounce window has passed. Delivery
// never blocks: if the daemon is behind, the next poll covers it.
func (w *Watcher) flushPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for projectID, at := range w.pending {
		if now.Sub(at) < w.debounce {
			continue
		}
		delete(w.pending, projectID)

		select {
		case w.notify <- projectID:
		default:
			w.log.Debug("dropping wakeup, channel full",
				zap.String("project", projectID))
		}
	}
}
