package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type watcher struct {
	fs   *fsnotify.Watcher
	dirs map[string]bool
}

func (w *watcher) close() error {
	return w.fs.Close()
}

// Watch reloads the cache when journal files in the loaded tree change on
// disk. Bursts of events are coalesced for the debounce interval. It
// returns once the watcher is running; watching stops when ctx is done or
// the cache is disposed.
func (c *Cache) Watch(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.watcher != nil {
		c.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("create watcher: %w", err)
	}
	w := &watcher{fs: fsw, dirs: make(map[string]bool)}
	c.watcher = w
	c.mu.Unlock()

	if _, err := c.Get(ctx); err != nil {
		c.logger.Warn("initial load failed", zap.Error(err))
	}
	c.syncWatches()

	go c.watchLoop(ctx, w)
	return nil
}

// syncWatches adds the directories of every loaded file.
func (c *Cache) syncWatches() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return
	}

	dirs := make([]string, 0, 1)
	if c.root != "" {
		dirs = append(dirs, filepath.Dir(c.root))
	}
	if entry := c.entry.Load(); entry != nil {
		for _, f := range entry.Files {
			dirs = append(dirs, filepath.Dir(f))
		}
	}
	slices.Sort(dirs)
	for _, dir := range slices.Compact(dirs) {
		if c.watcher.dirs[dir] {
			continue
		}
		if err := c.watcher.fs.Add(dir); err != nil {
			c.logger.Warn("cannot watch directory", zap.String("path", dir), zap.Error(err))
			continue
		}
		c.watcher.dirs[dir] = true
	}
}

// relevant reports whether a change to path can affect the loaded tree.
func (c *Cache) relevant(path string) bool {
	if isJournalFile(path) {
		return true
	}
	entry := c.entry.Load()
	return entry != nil && slices.Contains(entry.Files, path)
}

func (c *Cache) watchLoop(ctx context.Context, w *watcher) {
	pending := make(map[string]struct{})
	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod || !c.relevant(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(c.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(c.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			c.logger.Warn("watch error", zap.Error(err))
		case <-fire:
			for path := range pending {
				c.Invalidate(path)
			}
			c.logger.Debug("files changed", zap.Int("files", len(pending)))
			clear(pending)

			entry, err := c.Get(ctx)
			if err != nil {
				c.logger.Debug("reload after change failed", zap.Error(err))
				continue
			}
			c.syncWatches()
			if c.onReload != nil {
				c.onReload(entry)
			}
		}
	}
}
