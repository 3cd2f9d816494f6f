// Package workspace keeps the merged completion data of one journal tree
// up to date.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/juev/hledger-complete/internal/include"
	"github.com/juev/hledger-complete/internal/model"
	"github.com/juev/hledger-complete/internal/parser"
)

var ErrDisposed = errors.New("workspace cache disposed")

const DefaultDebounce = 200 * time.Millisecond

// CacheEntry is an immutable snapshot of a journal tree.
type CacheEntry struct {
	Root     string
	Files    []string
	Data     *model.ParsedData
	Warnings []include.LoadError
	LoadedAt time.Time
}

type Option func(*Cache)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithLimits(limits include.Limits) Option {
	return func(c *Cache) { c.limits = limits }
}

func WithParserOptions(opts parser.Options) Option {
	return func(c *Cache) { c.parserOpts = opts }
}

func WithDebounce(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.debounce = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithOnReload registers a callback run after a watcher-triggered reload.
func WithOnReload(fn func(*CacheEntry)) Option {
	return func(c *Cache) { c.onReload = fn }
}

// Cache owns the data of one workspace. Readers get whole snapshots
// without blocking; writers are serialized. Per-file results are kept
// between reloads, so a change re-parses only the files it touched.
type Cache struct {
	root       string
	logger     *zap.Logger
	limits     include.Limits
	parserOpts parser.Options
	debounce   time.Duration
	now        func() time.Time
	onReload   func(*CacheEntry)
	loader     *include.Loader

	entry atomic.Pointer[CacheEntry]
	stale atomic.Bool

	// mu serializes writers and guards the fields below.
	mu       sync.Mutex
	overlays map[string]string
	disposed bool
	done     chan struct{}
	watcher  *watcher
}

// New creates a cache for the journal tree rooted at root. An empty root
// yields empty snapshots.
func New(root string, opts ...Option) *Cache {
	c := &Cache{
		logger:   zap.NewNop(),
		limits:   include.DefaultLimits(),
		debounce: DefaultDebounce,
		now:      time.Now,
		overlays: make(map[string]string),
		done:     make(chan struct{}),
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	c.root = root
	for _, opt := range opts {
		opt(c)
	}
	c.loader = include.NewLoader(
		include.WithLimits(c.limits),
		include.WithParserOptions(c.parserOpts),
		include.WithReader(c.read),
	)
	return c
}

// Open finds the root journal of dir and creates a cache for it.
func Open(dir string, opts ...Option) (*Cache, error) {
	root, err := FindRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("find root journal: %w", err)
	}
	return New(root, opts...), nil
}

func (c *Cache) Root() string {
	return c.root
}

// read serves open editor buffers before the disk. It runs while mu is
// held by the reloading writer.
func (c *Cache) read(path string) ([]byte, error) {
	if content, ok := c.overlays[path]; ok {
		return []byte(content), nil
	}
	return os.ReadFile(path)
}

// Snapshot returns the last published entry without loading. It is nil
// before the first load.
func (c *Cache) Snapshot() *CacheEntry {
	return c.entry.Load()
}

// Get returns a current entry, loading the tree when nothing is cached or
// something was invalidated. A cancelled load keeps the previous entry
// published and returns ctx.Err().
func (c *Cache) Get(ctx context.Context) (*CacheEntry, error) {
	if entry := c.entry.Load(); entry != nil && !c.stale.Load() {
		return entry, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	if entry := c.entry.Load(); entry != nil && !c.stale.Load() {
		return entry, nil
	}
	return c.reload(ctx)
}

// UpdateFile replaces the content of path with an unsaved editor buffer
// and reloads.
func (c *Cache) UpdateFile(ctx context.Context, path, content string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	path = clean(path)
	c.overlays[path] = content
	c.loader.InvalidateFile(path)
	return c.reload(ctx)
}

// CloseFile drops the editor buffer of path; the file on disk is used
// again from the next load.
func (c *Cache) CloseFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path = clean(path)
	if _, ok := c.overlays[path]; !ok {
		return
	}
	delete(c.overlays, path)
	c.loader.InvalidateFile(path)
	c.stale.Store(true)
}

// Invalidate marks path as changed. Readers keep the current entry until
// the next Get reloads.
func (c *Cache) Invalidate(path string) {
	c.loader.InvalidateFile(clean(path))
	c.stale.Store(true)
}

func (c *Cache) InvalidateAll() {
	c.loader.ClearCache()
	c.stale.Store(true)
}

// Dispose releases the cache. Later calls to Get and UpdateFile return
// ErrDisposed.
func (c *Cache) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil
	}
	c.disposed = true
	close(c.done)

	var err error
	if c.watcher != nil {
		err = c.watcher.close()
		c.watcher = nil
	}
	c.entry.Store(nil)
	c.loader.ClearCache()
	clear(c.overlays)
	return err
}

// reload must be called with mu held.
func (c *Cache) reload(ctx context.Context) (*CacheEntry, error) {
	start := c.now()
	entry := &CacheEntry{Root: c.root, LoadedAt: start}

	if c.root != "" {
		// Clear first: an invalidation racing with this load must survive it.
		c.stale.Store(false)
		result, err := c.loader.Load(ctx, c.root)
		if err != nil {
			c.stale.Store(true)
			c.logger.Debug("load abandoned", zap.String("path", c.root), zap.Error(err))
			return nil, err
		}
		entry.Files = result.Paths()
		entry.Data = result.Data()
		entry.Warnings = result.Errors
	} else {
		c.stale.Store(false)
		entry.Data = model.MergeAll()
	}

	c.entry.Store(entry)
	c.logger.Debug("workspace loaded",
		zap.String("path", c.root),
		zap.Int("files", len(entry.Files)),
		zap.Int("warnings", len(entry.Warnings)),
		zap.Duration("elapsed", c.now().Sub(start)),
	)
	for _, w := range entry.Warnings {
		if w.Kind != include.ErrorParseError {
			c.logger.Warn("include problem", zap.String("path", w.Path), zap.String("kind", w.Kind.String()), zap.Error(w))
		}
	}
	return entry, nil
}

func clean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
