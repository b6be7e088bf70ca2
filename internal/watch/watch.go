// Package watch observes provider conversation directories and invokes
// a callback when a conversation file settles, so a running nexus can
// sync without being asked.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sunhome243/nexus-cli-sub000/internal/logging"
)

// debounceDelay coalesces the burst of write events a single logical
// change produces.
const debounceDelay = 250 * time.Millisecond

// OnChange is invoked with the path that changed after the burst of
// events around it has settled.
type OnChange func(path string)

// Watcher debounces fsnotify events over a set of directories
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange OnChange
}

// New creates a watcher over the given directories
func New(dirs []string, fn OnChange) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return nil, err
		}
	}
	return &Watcher{fs: fs, onChange: fn}, nil
}

// Run processes events until the context is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !interesting(event.Name) {
				continue
			}
			path := event.Name
			mu.Lock()
			if t, exists := timers[path]; exists {
				t.Reset(debounceDelay)
			} else {
				timers[path] = time.AfterFunc(debounceDelay, func() {
					mu.Lock()
					delete(timers, path)
					mu.Unlock()
					w.onChange(path)
				})
			}
			mu.Unlock()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Watcher error: %v", err)
		}
	}
}

// interesting filters for conversation files, ignoring temp files and
// the backups the sync itself produces.
func interesting(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if strings.Contains(base, ".bak-") || strings.Contains(base, ".before.") {
		return false
	}
	ext := filepath.Ext(base)
	return ext == ".jsonl" || ext == ".json"
}
