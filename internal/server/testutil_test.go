package server

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/juev/hledger-complete/internal/config"
)

type mockClient struct {
	mu       sync.Mutex
	messages []protocol.LogMessageParams
	config   []any
}

func (m *mockClient) Progress(_ context.Context, _ *protocol.ProgressParams) error {
	return nil
}

func (m *mockClient) WorkDoneProgressCreate(_ context.Context, _ *protocol.WorkDoneProgressCreateParams) error {
	return nil
}

func (m *mockClient) LogMessage(_ context.Context, params *protocol.LogMessageParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *params)
	return nil
}

func (m *mockClient) PublishDiagnostics(_ context.Context, _ *protocol.PublishDiagnosticsParams) error {
	return nil
}

func (m *mockClient) ShowMessage(_ context.Context, _ *protocol.ShowMessageParams) error {
	return nil
}

func (m *mockClient) ShowMessageRequest(_ context.Context, _ *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error) {
	return nil, nil
}

func (m *mockClient) Telemetry(_ context.Context, _ any) error {
	return nil
}

func (m *mockClient) RegisterCapability(_ context.Context, _ *protocol.RegistrationParams) error {
	return nil
}

func (m *mockClient) UnregisterCapability(_ context.Context, _ *protocol.UnregistrationParams) error {
	return nil
}

func (m *mockClient) ApplyEdit(_ context.Context, _ *protocol.ApplyWorkspaceEditParams) (bool, error) {
	return false, nil
}

func (m *mockClient) Configuration(_ context.Context, _ *protocol.ConfigurationParams) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config, nil
}

func (m *mockClient) WorkspaceFolders(_ context.Context) ([]protocol.WorkspaceFolder, error) {
	return nil, nil
}

func (m *mockClient) logged() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	for i, msg := range m.messages {
		out[i] = msg.Message
	}
	return out
}

type testServer struct {
	*Server
	client *mockClient
}

func noWatch() config.Settings {
	s := config.Default()
	s.Cache.WatchFiles = false
	return s
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	srv := NewServer(noWatch())
	client := &mockClient{}
	srv.SetClient(client)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, client: client}
}

// newWorkspaceServer initializes a server on a directory holding files.
func newWorkspaceServer(t *testing.T, files map[string]string) (*testServer, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	ts := newTestServer(t)
	ctx := context.Background()
	_, err := ts.Initialize(ctx, &protocol.InitializeParams{
		WorkspaceFolders: []protocol.WorkspaceFolder{{URI: string(uri.File(dir)), Name: "test"}},
	})
	require.NoError(t, err)
	require.NoError(t, ts.Initialized(ctx, &protocol.InitializedParams{}))
	return ts, dir
}

func fileURI(dir, name string) protocol.DocumentURI {
	return protocol.DocumentURI(uri.File(filepath.Join(dir, name)))
}

func (ts *testServer) open(t *testing.T, docURI protocol.DocumentURI, content string) {
	t.Helper()
	require.NoError(t, ts.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: docURI, LanguageID: "hledger", Text: content},
	}))
}

func (ts *testServer) complete(t *testing.T, docURI protocol.DocumentURI, line, character uint32) *protocol.CompletionList {
	t.Helper()
	list, err := ts.Completion(context.Background(), &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
			Position:     protocol.Position{Line: line, Character: character},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, list)
	return list
}

func completionLabels(items []protocol.CompletionItem) []string {
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	return labels
}
