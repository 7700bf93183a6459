package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/postpress/cmd/postpress/commands"
	ferrors "git.home.luguber.info/inful/postpress/internal/foundation/errors"
	"git.home.luguber.info/inful/postpress/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("postpress"),
		kong.Description("Publish a directory of Markdown posts as a static HTML site."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)
	err := parser.Run(&commands.Global{Ctx: ctx, Stdout: os.Stdout}, cli)
	stop()
	if err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
