// Package include loads a journal together with the files it includes.
package include

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/juev/hledger-complete/internal/ast"
	"github.com/juev/hledger-complete/internal/model"
	"github.com/juev/hledger-complete/internal/parser"
)

// ReadFunc returns the content of a file.
type ReadFunc func(path string) ([]byte, error)

type Option func(*Loader)

func WithLimits(limits Limits) Option {
	return func(l *Loader) { l.limits = limits }
}

// WithReader replaces os.ReadFile, e.g. to serve unsaved editor buffers.
func WithReader(read ReadFunc) Option {
	return func(l *Loader) { l.read = read }
}

func WithParserOptions(opts parser.Options) Option {
	return func(l *Loader) { l.parserOpts = opts }
}

// Loader parses files once and keeps them until invalidated.
type Loader struct {
	mu         sync.Mutex
	cache      map[string]*cachedFile
	limits     Limits
	read       ReadFunc
	parserOpts parser.Options
}

type cachedFile struct {
	file   *File
	errors []parser.ParseError
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		cache:  make(map[string]*cachedFile),
		limits: DefaultLimits(),
		read:   os.ReadFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type loadState struct {
	result *ResolvedJournal
	seen   map[string]bool
	stack  map[string]bool
}

func (s *loadState) warn(kind ErrorKind, path string, rng ast.Range, format string, args ...any) {
	s.result.Errors = append(s.result.Errors, LoadError{
		Kind:    kind,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
		Range:   rng,
	})
}

// Load reads path and, depth first, every file it includes. Missing,
// cyclic or oversized includes are recorded in the result and skipped. The
// only returned error is ctx.Err(), checked between files; the result then
// holds what was loaded so far.
func (l *Loader) Load(ctx context.Context, path string) (*ResolvedJournal, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	st := &loadState{
		result: &ResolvedJournal{Root: path},
		seen:   make(map[string]bool),
		stack:  make(map[string]bool),
	}
	err := l.load(ctx, st, path, ast.Range{}, 0)
	return st.result, err
}

func (l *Loader) load(ctx context.Context, st *loadState, path string, from ast.Range, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	limits := l.limits

	if st.stack[path] {
		st.warn(ErrorCycleDetected, path, from, "cycle detected: %s is already being included", path)
		return nil
	}
	if st.seen[path] {
		return nil
	}
	if depth > limits.MaxIncludeDepth {
		st.warn(ErrorDepthExceeded, path, from, "include depth exceeds %d", limits.MaxIncludeDepth)
		return nil
	}

	cached, lerr, err := l.file(ctx, path, limits)
	if err != nil {
		return err
	}
	if lerr != nil {
		lerr.Range = from
		st.result.Errors = append(st.result.Errors, *lerr)
		return nil
	}

	st.seen[path] = true
	st.result.Files = append(st.result.Files, cached.file)
	for _, e := range cached.errors {
		pos := ast.Position{Line: e.Pos.Line, Column: e.Pos.Column, Offset: e.Pos.Offset}
		st.warn(ErrorParseError, path, ast.Range{Start: pos, End: pos}, "%s", e.Message)
	}

	st.stack[path] = true
	defer delete(st.stack, path)

	for _, inc := range cached.file.Journal.Includes {
		targets, ok := l.targets(st, path, inc)
		if !ok {
			continue
		}
		for _, target := range targets {
			if err := l.load(ctx, st, target, inc.Range, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// targets resolves one include directive to file paths.
func (l *Loader) targets(st *loadState, path string, inc ast.Include) ([]string, bool) {
	resolved := ResolvePath(path, inc.Path)
	if !IsGlob(inc.Path) {
		return []string{resolved}, true
	}

	matches, err := ExpandGlob(resolved)
	if err != nil {
		st.warn(ErrorFileNotFound, resolved, inc.Range, "invalid include pattern %q: %v", inc.Path, err)
		return nil, false
	}
	// A glob never includes the file it appears in.
	out := matches[:0]
	for _, m := range matches {
		if m != path {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		st.warn(ErrorFileNotFound, resolved, inc.Range, "no files match %q", inc.Path)
		return nil, false
	}
	return out, true
}

// file returns the parsed file at path, from the cache when possible.
func (l *Loader) file(ctx context.Context, path string, limits Limits) (*cachedFile, *LoadError, error) {
	l.mu.Lock()
	cached, ok := l.cache[path]
	read := l.read
	parserOpts := l.parserOpts
	l.mu.Unlock()
	if ok {
		return cached, nil, nil
	}

	content, err := read(path)
	if err != nil {
		kind := ErrorReadError
		if errors.Is(err, fs.ErrNotExist) {
			kind = ErrorFileNotFound
		}
		return nil, &LoadError{Kind: kind, Path: path, Message: fmt.Sprintf("cannot read %s: %v", path, err)}, nil
	}
	if limits.MaxFileSizeBytes > 0 && int64(len(content)) > limits.MaxFileSizeBytes {
		return nil, &LoadError{
			Kind:    ErrorFileTooLarge,
			Path:    path,
			Message: fmt.Sprintf("%s is larger than %d bytes", path, limits.MaxFileSizeBytes),
		}, nil
	}

	journal, data, parseErrs, err := model.BuildJournal(ctx, parser.Tokenize(string(content)), model.Options{
		Source: path,
		Parser: parserOpts,
	})
	if err != nil {
		return nil, nil, err
	}

	includes := make([]string, len(journal.Includes))
	for i, inc := range journal.Includes {
		includes[i] = ResolvePath(path, inc.Path)
	}
	cached = &cachedFile{
		file:   &File{Path: path, Journal: journal, Data: data, Includes: includes},
		errors: parseErrs,
	}

	l.mu.Lock()
	l.cache[path] = cached
	l.mu.Unlock()
	return cached, nil, nil
}

func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*cachedFile)
	l.mu.Unlock()
}

func (l *Loader) InvalidateFile(path string) {
	l.mu.Lock()
	delete(l.cache, path)
	l.mu.Unlock()
}

// Cached reports whether path is in the cache.
func (l *Loader) Cached(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.cache[path]
	return ok
}
