// Package server answers LSP completion requests for hledger journals.
package server

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/juev/hledger-complete/internal/ast"
	"github.com/juev/hledger-complete/internal/completion"
	"github.com/juev/hledger-complete/internal/config"
	"github.com/juev/hledger-complete/internal/include"
	"github.com/juev/hledger-complete/internal/lsputil"
	"github.com/juev/hledger-complete/internal/model"
	"github.com/juev/hledger-complete/internal/workspace"
)

const Name = "hledger-complete"

// document is an open editor buffer and what it contributes on its own.
type document struct {
	text *lsputil.Text
	path string
	data *model.ParsedData
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConfigLoader reads workspace settings once the root is known.
func WithConfigLoader(load func(dir string) (config.Settings, error)) Option {
	return func(s *Server) { s.loadConfig = load }
}

// WithExit is called on the exit notification.
func WithExit(fn func()) Option {
	return func(s *Server) { s.exit = fn }
}

func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

type Server struct {
	client     protocol.Client
	logger     *zap.Logger
	loadConfig func(dir string) (config.Settings, error)
	exit       func()
	version    string

	documents sync.Map // protocol.DocumentURI -> *document
	engine    atomic.Pointer[completion.Engine]

	settingsMu            sync.RWMutex
	settings              config.Settings
	supportsConfiguration bool
	rootDir               string

	// cacheMu guards the workspace cache and its watcher.
	cacheMu   sync.Mutex
	cache     *workspace.Cache
	stopWatch context.CancelFunc

	reportedMu sync.Mutex
	reported   map[warningKey]bool
}

type warningKey struct {
	kind  include.ErrorKind
	path  string
	start ast.Position
}

func NewServer(settings config.Settings, opts ...Option) *Server {
	s := &Server{
		logger:   zap.NewNop(),
		version:  "dev",
		reported: make(map[warningKey]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setSettings(settings)
	return s
}

func (s *Server) SetClient(client protocol.Client) {
	s.client = client
}

func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if params != nil {
		if params.Capabilities.Workspace != nil {
			s.supportsConfiguration = params.Capabilities.Workspace.Configuration
		}
		s.rootDir = rootDir(params)
	}

	settings := s.getSettings()
	if s.rootDir != "" && s.loadConfig != nil {
		loaded, err := s.loadConfig(s.rootDir)
		if err != nil {
			s.logger.Warn("workspace settings ignored", zap.String("path", s.rootDir), zap.Error(err))
		} else {
			settings = loaded
		}
	}
	if params != nil {
		settings = config.ApplyRaw(settings, params.InitializationOptions)
	}
	s.setSettings(settings)

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindIncremental,
				Save:      &protocol.SaveOptions{IncludeText: false},
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{":", " ", ";"},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    Name,
			Version: s.version,
		},
	}, nil
}

func rootDir(params *protocol.InitializeParams) string {
	if len(params.WorkspaceFolders) > 0 {
		return uriToPath(protocol.DocumentURI(params.WorkspaceFolders[0].URI))
	}
	return uriToPath(protocol.DocumentURI(params.RootURI)) //nolint:staticcheck // older clients only send rootUri
}

// Initialized loads the workspace tree and, when enabled, starts watching
// it.
func (s *Server) Initialized(ctx context.Context, _ *protocol.InitializedParams) error {
	s.openCache(ctx)
	go s.refreshConfiguration(context.Background())
	return nil
}

func (s *Server) openCache(ctx context.Context) {
	if s.rootDir == "" {
		return
	}
	settings := s.getSettings()

	cache, err := workspace.Open(s.rootDir,
		workspace.WithLogger(s.logger),
		workspace.WithLimits(settings.IncludeLimits()),
		workspace.WithParserOptions(settings.ParserOptions()),
		workspace.WithDebounce(settings.Cache.Debounce),
		workspace.WithOnReload(func(entry *workspace.CacheEntry) {
			s.reportWarnings(context.Background(), entry)
		}),
	)
	if err != nil {
		s.logMessage(ctx, protocol.MessageTypeWarning, "Workspace initialization failed: "+err.Error())
		return
	}

	s.cacheMu.Lock()
	s.cache = cache
	if settings.Cache.WatchFiles {
		watchCtx, cancel := context.WithCancel(context.Background())
		s.stopWatch = cancel
		if err := cache.Watch(watchCtx); err != nil {
			s.logger.Warn("file watching disabled", zap.Error(err))
		}
	}
	s.cacheMu.Unlock()

	// Replay open buffers that arrived before the cache existed.
	s.documents.Range(func(_, value any) bool {
		doc := value.(*document)
		if doc.path != "" {
			if _, err := cache.UpdateFile(ctx, doc.path, doc.text.Content()); err != nil {
				s.logger.Debug("buffer not applied", zap.String("path", doc.path), zap.Error(err))
			}
		}
		return true
	})

	entry, err := cache.Get(ctx)
	if err != nil {
		s.logger.Warn("workspace load failed", zap.String("path", s.rootDir), zap.Error(err))
		return
	}
	s.reportWarnings(ctx, entry)
}

func (s *Server) closeCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	if s.cache != nil {
		if err := s.cache.Dispose(); err != nil {
			s.logger.Debug("dispose", zap.Error(err))
		}
		s.cache = nil
	}
}

func (s *Server) getCache() *workspace.Cache {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cache
}

func (s *Server) Shutdown(_ context.Context) error {
	s.closeCache()
	return nil
}

func (s *Server) Exit(_ context.Context) error {
	s.closeCache()
	if s.exit != nil {
		s.exit()
	}
	return nil
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.storeDocument(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil
	}
	content := lsputil.ApplyChanges(doc.text.Content(), params.ContentChanges)
	s.storeDocument(ctx, params.TextDocument.URI, content)
	return nil
}

func (s *Server) DidClose(_ context.Context, params *protocol.DidCloseTextDocumentParams) error {
	value, ok := s.documents.LoadAndDelete(params.TextDocument.URI)
	if !ok {
		return nil
	}
	if cache := s.getCache(); cache != nil {
		if path := value.(*document).path; path != "" {
			cache.CloseFile(path)
		}
	}
	return nil
}

func (s *Server) DidSave(_ context.Context, params *protocol.DidSaveTextDocumentParams) error {
	if cache := s.getCache(); cache != nil {
		if path := uriToPath(params.TextDocument.URI); path != "" {
			cache.Invalidate(path)
		}
	}
	return nil
}

// storeDocument records a buffer and pushes it into the workspace tree so
// that included files see unsaved edits.
func (s *Server) storeDocument(ctx context.Context, docURI protocol.DocumentURI, content string) {
	path := uriToPath(docURI)
	source := path
	if source == "" {
		source = string(docURI)
	}
	data, _ := model.BuildText(content, model.Options{Source: source, Parser: s.getSettings().ParserOptions()})
	s.documents.Store(docURI, &document{text: lsputil.NewText(content), path: path, data: data})

	cache := s.getCache()
	if cache == nil || path == "" {
		return
	}
	entry, err := cache.UpdateFile(ctx, path, content)
	if err != nil {
		s.logger.Debug("workspace update failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.reportWarnings(ctx, entry)
}

func (s *Server) getDocument(docURI protocol.DocumentURI) (*document, bool) {
	if value, ok := s.documents.Load(docURI); ok {
		return value.(*document), true
	}
	return nil, false
}

// dataFor is what completion draws on for a document: the workspace tree,
// plus the document itself when the tree does not include it.
func (s *Server) dataFor(ctx context.Context, doc *document) *model.ParsedData {
	cache := s.getCache()
	if cache == nil {
		return doc.data
	}
	entry, err := cache.Get(ctx)
	if err != nil {
		entry = cache.Snapshot()
	}
	if entry == nil {
		return doc.data
	}
	for _, f := range entry.Files {
		if f == doc.path {
			return entry.Data
		}
	}
	return model.Merge(entry.Data, doc.data)
}

// reportWarnings sends each include problem to the client once. Only the
// problems of the latest entry are remembered, so a problem that was fixed
// and comes back is reported again.
func (s *Server) reportWarnings(ctx context.Context, entry *workspace.CacheEntry) {
	if entry == nil {
		return
	}
	current := make(map[warningKey]bool, len(entry.Warnings))
	var fresh []string
	s.reportedMu.Lock()
	for _, w := range entry.Warnings {
		key := warningKey{kind: w.Kind, path: w.Path, start: w.Range.Start}
		if current[key] {
			continue
		}
		current[key] = true
		if !s.reported[key] {
			fresh = append(fresh, warningText(w))
		}
	}
	s.reported = current
	s.reportedMu.Unlock()

	for _, msg := range fresh {
		s.logMessage(ctx, protocol.MessageTypeWarning, msg)
	}
}

// warningText prefixes parse errors with their location.
func warningText(w include.LoadError) string {
	if w.Kind != include.ErrorParseError || w.Path == "" {
		return w.Error()
	}
	return fmt.Sprintf("%s:%d:%d: %s", w.Path, w.Range.Start.Line, w.Range.Start.Column, w.Message)
}

func (s *Server) logMessage(ctx context.Context, typ protocol.MessageType, msg string) {
	if s.client == nil {
		return
	}
	if err := s.client.LogMessage(ctx, &protocol.LogMessageParams{Type: typ, Message: msg}); err != nil {
		s.logger.Debug("logMessage failed", zap.Error(err))
	}
}

func uriToPath(docURI protocol.DocumentURI) string {
	str := string(docURI)
	if !strings.HasPrefix(str, "file://") {
		return ""
	}
	path := uri.URI(docURI).Filename() //nolint:unconvert // protocol.DocumentURI and uri.URI are different types
	if path == "" {
		path = str[len("file://"):]
	}
	return filepath.Clean(path)
}
