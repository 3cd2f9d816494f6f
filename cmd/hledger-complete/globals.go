package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/juev/hledger-complete/internal/config"
	"github.com/juev/hledger-complete/internal/include"
	"github.com/juev/hledger-complete/internal/model"
	"github.com/juev/hledger-complete/internal/workspace"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `help:"Settings file; defaults to ${config_file} in the workspace." type:"path" placeholder:"FILE"`
	Dir      string `help:"Workspace directory." default:"." type:"path"`
	LogLevel string `help:"Log to stderr at this level." enum:",debug,info,warn,error" default:""`
}

// Logger writes to stderr only; stdout belongs to the LSP stream.
func (g *Globals) Logger(stderr io.Writer) (*zap.Logger, error) {
	if g.LogLevel == "" {
		return zap.NewNop(), nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(g.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(stderr)), level)
	return zap.New(core), nil
}

// Settings loads the workspace settings for dir, honouring --config.
func (g *Globals) Settings(dir string) (config.Settings, error) {
	return config.Load(config.LoadOptions{Dir: dir, File: g.Config})
}

// loadJournal reads the journal tree for the workspace, or for journal
// when given. Include problems come back as warnings.
func loadJournal(ctx context.Context, g *Globals, journal string, settings config.Settings, logger *zap.Logger) (*model.ParsedData, []include.LoadError, error) {
	opts := []workspace.Option{
		workspace.WithLogger(logger),
		workspace.WithLimits(settings.IncludeLimits()),
		workspace.WithParserOptions(settings.ParserOptions()),
	}

	var cache *workspace.Cache
	if journal != "" {
		cache = workspace.New(journal, opts...)
	} else {
		var err error
		cache, err = workspace.Open(g.Dir, opts...)
		if err != nil {
			return nil, nil, err
		}
	}
	defer func() { _ = cache.Dispose() }()

	if cache.Root() == "" {
		return nil, nil, fmt.Errorf("no journal found in %s", g.Dir)
	}
	logger.Debug("loading journal", zap.String("path", cache.Root()))

	entry, err := cache.Get(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", cache.Root(), err)
	}
	logger.Debug("journal loaded", zap.Int("files", len(entry.Files)))
	return entry.Data, entry.Warnings, nil
}
