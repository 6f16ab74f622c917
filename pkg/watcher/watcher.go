// Package watcher provides filesystem watching for redeploy-on-change
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stagehand/stagehand/pkg/logger"
)

// Watcher watches source trees and reports settled batches of changes
type Watcher struct {
	watcher    *fsnotify.Watcher
	logger     logger.Logger
	settling   time.Duration
	exclusions []string

	pending map[string]struct{}
	timer   *time.Timer
	mu      sync.Mutex

	callback func(changed []string)
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a watcher with the given settling delay. Events are
// batched until no change has been seen for the settling window.
func New(log logger.Logger, settling time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if settling <= 0 {
		settling = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		watcher:  fsw,
		logger:   log,
		settling: settling,
		pending:  make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// SetExclusions sets directory name patterns to skip
func (w *Watcher) SetExclusions(exclusions []string) {
	w.mu.Lock()
	w.exclusions = exclusions
	w.mu.Unlock()
}

// Watch starts watching the given roots recursively. Roots that do not
// exist are skipped with a warning.
func (w *Watcher) Watch(roots []string, callback func(changed []string)) error {
	w.mu.Lock()
	w.callback = callback
	w.mu.Unlock()

	watched := 0
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			w.logger.Warn(fmt.Sprintf("Watch root %s does not exist, skipping", root))
			continue
		}
		if err := w.addTree(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		watched++
	}

	if watched == 0 {
		return fmt.Errorf("no watchable roots")
	}

	go w.processEvents()

	w.logger.Info(fmt.Sprintf("Watching %d tree(s) for changes", watched))
	return nil
}

// Close stops the watcher
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// IsExcluded reports whether a path matches an exclusion pattern
func (w *Watcher) IsExcluded(path string) bool {
	w.mu.Lock()
	exclusions := w.exclusions
	w.mu.Unlock()

	for _, pattern := range exclusions {
		for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
			if matched, _ := filepath.Match(pattern, segment); matched {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if w.IsExcluded(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn(fmt.Sprintf("Failed to watch directory %s: %v", path, err))
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
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
			w.logger.Warn("Watcher error", logger.WithField("error", err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.IsExcluded(event.Name) {
		return
	}

	// Newly created directories join the watch set
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Debug("Failed to watch new directory", logger.WithField("error", err))
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[event.Name] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settling, w.flush)
}

// flush delivers the settled batch of changes
func (w *Watcher) flush() {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]struct{})
	callback := w.callback
	w.mu.Unlock()

	if len(changed) == 0 || callback == nil {
		return
	}

	w.logger.Debug(fmt.Sprintf("%d file(s) changed", len(changed)))
	callback(changed)
}
