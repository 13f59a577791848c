package db

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDelay coalesces bursts of file events from one transaction
const DefaultWatchDelay = 500 * time.Millisecond

// Watch observes the database file and publishes fresh snapshots to
// subscribers when another process modifies it. It returns once the
// watcher is running; the watch stops when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		delay = DefaultWatchDelay
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// sqlite rewrites journal and wal files next to the database, so watch the directory
	dir := filepath.Dir(s.path)
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	s.logger.Info("watching database for external changes", zap.String("path", s.path))
	go s.watchLoop(ctx, fsWatcher, delay)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, w *fsnotify.Watcher, delay time.Duration) {
	defer w.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	stop := func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}
	defer stop()

	base := filepath.Base(s.path)
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(delay, func() {
				s.logger.Debug("database changed on disk", zap.String("file", event.Name))
				s.publishTemplates(ctx)
				s.publishSessions(ctx)
			})
			mu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("database watcher error", zap.Error(err))

		case <-ctx.Done():
			s.logger.Debug("stopping database watcher")
			return
		}
	}
}
