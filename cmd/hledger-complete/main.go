package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/juev/hledger-complete/internal/config"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// CLI is the command tree. Without a command the language server starts,
// which is how editors launch it.
type CLI struct {
	Globals

	ShowVersion kong.VersionFlag `name:"version" short:"v" help:"Show version information."`

	Serve     ServeCmd     `cmd:"" default:"1" help:"Run the language server on stdio."`
	Complete  CompleteCmd  `cmd:"" help:"Print ranked completions for a line as if typed into the journal."`
	Classify  ClassifyCmd  `cmd:"" help:"Print the completion context of a cursor position."`
	Templates TemplatesCmd `cmd:"" help:"Print the transaction templates recorded for a payee."`
	Info      VersionCmd   `cmd:"" name:"version" help:"Print version information."`
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

func newParser(cli *CLI, opts ...kong.Option) (*kong.Kong, error) {
	opts = append([]kong.Option{
		kong.Vars{
			"version":     buildVersion(),
			"config_file": config.FileName,
		},
		kong.Name("hledger-complete"),
		kong.Description("Completion for hledger journals, as a language server or from the shell."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	}, opts...)
	return kong.New(cli, opts...)
}

func buildVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
