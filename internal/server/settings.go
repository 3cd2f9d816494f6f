package server

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/juev/hledger-complete/internal/completion"
	"github.com/juev/hledger-complete/internal/config"
)

// setSettings installs normalized settings and a matching engine. A
// change to parsing or include limits rebuilds the workspace cache.
func (s *Server) setSettings(settings config.Settings) {
	settings = config.Normalize(settings)

	s.settingsMu.Lock()
	prev := s.settings
	s.settings = settings
	s.settingsMu.Unlock()

	s.engine.Store(completion.New(settings.EngineConfig(), completion.WithLogger(s.logger)))

	if s.getCache() != nil && (prev.Parser != settings.Parser || prev.Limits != settings.Limits ||
		prev.Cache.WatchFiles != settings.Cache.WatchFiles || prev.Cache.Debounce != settings.Cache.Debounce) {
		s.closeCache()
		s.openCache(context.Background())
	}
}

func (s *Server) getSettings() config.Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

func (s *Server) refreshConfiguration(ctx context.Context) {
	if s.client == nil || !s.supportsConfiguration {
		return
	}
	result, err := s.client.Configuration(ctx, &protocol.ConfigurationParams{
		Items: []protocol.ConfigurationItem{
			{Section: "hledger"},
		},
	})
	if err != nil || len(result) == 0 {
		if err != nil {
			s.logger.Debug("workspace/configuration failed", zap.Error(err))
		}
		return
	}
	s.setSettings(config.ApplyRaw(s.getSettings(), result[0]))
}

// DidChangeConfiguration applies pushed settings, or pulls them when the
// client only signals a change.
func (s *Server) DidChangeConfiguration(_ context.Context, params *protocol.DidChangeConfigurationParams) error {
	if params != nil && params.Settings != nil {
		s.setSettings(config.ApplyRaw(s.getSettings(), params.Settings))
		return nil
	}
	go s.refreshConfiguration(context.Background())
	return nil
}
