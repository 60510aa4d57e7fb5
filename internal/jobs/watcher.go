package jobs

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/fsnotify/fsnotify"
)

const DefaultWatchDebounce = 2 * time.Second

// JobRunner runs a job and records its audit.
type JobRunner interface {
	RunWithAudit(ctx context.Context, job Job) (*domain.JobAudit, error)
}

// InboxWatcher runs a job whenever files land in a directory. Bursts of
// events within the debounce window collapse into one run.
type InboxWatcher struct {
	dir      string
	debounce time.Duration
	runner   JobRunner
	job      Job
}

func NewInboxWatcher(dir string, debounce time.Duration, runner JobRunner, job Job) *InboxWatcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &InboxWatcher{
		dir:      dir,
		debounce: debounce,
		runner:   runner,
		job:      job,
	}
}

// Watch blocks until ctx is cancelled. The directory must exist.
func (w *InboxWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	log.Printf("Watching inbox %s", w.dir)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isInboxFileEvent(event) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Inbox watcher error: %v", err)
		case <-timer.C:
			if _, err := w.runner.RunWithAudit(ctx, w.job); err != nil {
				log.Printf("Inbox import failed: %v", err)
			}
		}
	}
}

// isInboxFileEvent reports whether an event is a regular, visible file being
// created or written.
func isInboxFileEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
