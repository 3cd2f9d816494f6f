package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/alecthomas/kong"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/juev/hledger-complete/internal/completion"
	"github.com/juev/hledger-complete/internal/config"
	"github.com/juev/hledger-complete/internal/position"
	"github.com/juev/hledger-complete/internal/server"
)

type ServeCmd struct{}

func (cmd *ServeCmd) Run(ctx *kong.Context, g *Globals) error {
	logger, err := g.Logger(ctx.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	settings, err := g.Settings(g.Dir)
	if err != nil {
		logger.Warn("settings ignored", zap.Error(err))
		settings = config.Default()
	}

	stream := jsonrpc2.NewStream(stdrwc{})
	conn := jsonrpc2.NewConn(stream)

	srv := server.NewServer(settings,
		server.WithLogger(logger),
		server.WithVersion(Version),
		server.WithConfigLoader(g.Settings),
		server.WithExit(func() { _ = conn.Close() }),
	)
	srv.SetClient(protocol.ClientDispatcher(conn, logger))

	conn.Go(context.Background(), server.Handler(srv))
	<-conn.Done()

	return conn.Err()
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	return nil
}

// Cursor is a line and a rune column in it; a negative column means the
// end of the line.
type Cursor struct {
	Line   string `arg:"" help:"Line text up to and around the cursor."`
	Column int    `short:"c" help:"Rune column of the cursor; end of line when negative." default:"-1"`
}

func (c Cursor) column() int {
	if c.Column < 0 {
		return utf8.RuneCountInString(c.Line)
	}
	return c.Column
}

type CompleteCmd struct {
	Cursor

	Journal string `short:"f" help:"Journal to complete from instead of the workspace root." type:"existingfile"`
	Max     int    `short:"n" help:"Maximum number of candidates; the settings value when zero." default:"0"`
}

func (cmd *CompleteCmd) Run(ctx *kong.Context, g *Globals) error {
	logger, err := g.Logger(ctx.Stderr)
	if err != nil {
		return err
	}

	settings, err := g.Settings(g.Dir)
	if err != nil {
		return err
	}
	if cmd.Max > 0 {
		settings.Completion.MaxResults = cmd.Max
	}

	data, warnings, err := loadJournal(context.Background(), g, cmd.Journal, settings, logger)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		printWarning(ctx.Stderr, w.Error())
	}

	engine := completion.New(settings.EngineConfig(), completion.WithLogger(logger))
	res, err := engine.Complete(data, cmd.Line, cmd.column())
	if err != nil {
		return err
	}
	renderResult(ctx.Stdout, res)
	return nil
}

type ClassifyCmd struct {
	Cursor
}

func (cmd *ClassifyCmd) Run(ctx *kong.Context) error {
	pos, err := position.Classify(cmd.Line, cmd.column())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(ctx.Stdout, "%s\t%s\n", pos, completion.DomainFor(pos))
	return nil
}

type TemplatesCmd struct {
	Payee   string `arg:"" help:"Payee name."`
	Journal string `short:"f" help:"Journal to read instead of the workspace root." type:"existingfile"`
}

func (cmd *TemplatesCmd) Run(ctx *kong.Context, g *Globals) error {
	logger, err := g.Logger(ctx.Stderr)
	if err != nil {
		return err
	}
	settings, err := g.Settings(g.Dir)
	if err != nil {
		return err
	}

	data, warnings, err := loadJournal(context.Background(), g, cmd.Journal, settings, logger)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		printWarning(ctx.Stderr, w.Error())
	}

	templates := data.TransactionTemplates(cmd.Payee)
	if len(templates) == 0 {
		return fmt.Errorf("no templates for payee %q", cmd.Payee)
	}
	renderTemplates(ctx.Stdout, templates, data.RecentFrequency(cmd.Payee))
	return nil
}

type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context) error {
	_, err := io.WriteString(ctx.Stdout, "hledger-complete "+buildVersion()+"\n")
	return err
}
