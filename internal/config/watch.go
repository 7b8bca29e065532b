package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "vakit/internal/log"
)

// settingsThrottle is how long a burst of writes is coalesced for. Editors
// and SaveSettings (temp file + rename) produce several events per save.
const settingsThrottle = 200 * time.Millisecond

// WatchSettings signals on the returned channel whenever the settings file
// at path is written, created, renamed over or removed. The parent
// directory is watched so atomic replacements are seen. The channel is
// closed once ctx is done or the watcher fails.
func WatchSettings(ctx context.Context, path string) (<-chan struct{}, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("config: ensure settings dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)
		defer watcher.Close()

		send := func() {
			select {
			case changes <- struct{}{}:
			default:
				// A signal is already pending; the reader re-reads the
				// whole record anyway.
			}
		}
		throttle := newThrottle(settingsThrottle, send)
		defer throttle.stop()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				appLog.Error("settings watcher error", err, "path", path)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				throttle.enqueue()
			}
		}
	}()

	return changes, nil
}

// throttle calls fn once per burst of enqueue calls, delay after the first.
type throttle struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	delay   time.Duration
	fn      func()
}

func newThrottle(delay time.Duration, fn func()) *throttle {
	return &throttle{delay: delay, fn: fn}
}

func (t *throttle) enqueue() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer == nil && !t.stopped {
		t.timer = time.AfterFunc(t.delay, t.flush)
	}
}

// flush runs fn under the lock so that nothing is sent once stop returns.
func (t *throttle) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = nil
	if !t.stopped {
		t.fn()
	}
}

func (t *throttle) stop() {
	t.mu.Lock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
