package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/juev/hledger-complete/internal/config"
)

func TestServer_SetSettings_Normalizes(t *testing.T) {
	srv := NewServer(config.Settings{})

	settings := srv.getSettings()
	defaults := config.Default()
	assert.Equal(t, defaults.Completion.MaxResults, settings.Completion.MaxResults)
	assert.Equal(t, defaults.Parser.ChunkLines, settings.Parser.ChunkLines)
	assert.Equal(t, defaults.Limits, settings.Limits)
	assert.Equal(t, defaults.Cache.Debounce, settings.Cache.Debounce)
}

func TestServer_DidChangeConfiguration_Pushed(t *testing.T) {
	ts := newTestServer(t)
	doc := protocol.DocumentURI("file:///tmp/standalone.journal")
	ts.open(t, doc, standalone+"\n2024-02-01 x\n    s")
	require.Len(t, ts.complete(t, doc, 12, 5).Items, 2)

	require.NoError(t, ts.DidChangeConfiguration(context.Background(), &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{
			"hledger": map[string]any{"completion.maxResults": float64(1)},
		},
	}))

	assert.Equal(t, 1, ts.getSettings().Completion.MaxResults)
	assert.Len(t, ts.complete(t, doc, 12, 5).Items, 1)
}

func TestServer_DidChangeConfiguration_Pulled(t *testing.T) {
	ts := newTestServer(t)
	ts.supportsConfiguration = true
	ts.client.config = []any{map[string]any{
		"completion": map[string]any{"maxResults": float64(3)},
	}}

	require.NoError(t, ts.DidChangeConfiguration(context.Background(), &protocol.DidChangeConfigurationParams{}))

	assert.Eventually(t, func() bool {
		return ts.getSettings().Completion.MaxResults == 3
	}, time.Second, 10*time.Millisecond)
}

func TestServer_RefreshConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		supports bool
		config   []any
		want     int
	}{
		{
			name:     "applies first item",
			supports: true,
			config:   []any{map[string]any{"completion.maxResults": "9"}},
			want:     9,
		},
		{
			name:     "client without configuration support",
			supports: false,
			config:   []any{map[string]any{"completion.maxResults": float64(9)}},
			want:     config.Default().Completion.MaxResults,
		},
		{
			name:     "empty reply",
			supports: true,
			want:     config.Default().Completion.MaxResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.supportsConfiguration = tt.supports
			ts.client.config = tt.config

			ts.refreshConfiguration(context.Background())
			assert.Equal(t, tt.want, ts.getSettings().Completion.MaxResults)
		})
	}
}

func TestServer_SetSettings_RebuildsCache(t *testing.T) {
	ts, _ := newWorkspaceServer(t, map[string]string{
		"main.journal":     treeMain,
		"accounts.journal": treeAccounts,
	})
	before := ts.getCache()
	require.NotNil(t, before)

	settings := ts.getSettings()
	settings.Completion.MaxResults = 10
	ts.setSettings(settings)
	assert.Same(t, before, ts.getCache(), "completion settings leave the tree alone")

	settings.Parser.DayFirst = !settings.Parser.DayFirst
	ts.setSettings(settings)
	after := ts.getCache()
	require.NotNil(t, after)
	assert.NotSame(t, before, after)

	settings.Limits.MaxIncludeDepth = 1
	ts.setSettings(settings)
	limited := ts.getCache()
	require.NotNil(t, limited)
	assert.NotSame(t, after, limited, "new include limits need a new loader")
}
