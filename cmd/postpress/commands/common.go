package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/postpress/internal/config"
	ferrors "git.home.luguber.info/inful/postpress/internal/foundation/errors"
)

// Global carries process-wide state into command Run methods.
type Global struct {
	Ctx    context.Context
	Stdout io.Writer
}

func (g *Global) context() context.Context {
	if g == nil || g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) stdout() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Site configuration file (default: postpress.yaml in the source root or working directory)" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging and list informational notes in the summary"`
	LogFormat string           `name:"log-format" help:"Log output format (text|json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" default:"withargs" help:"Build the site from a directory of posts"`
	Check CheckCmd `cmd:"" help:"Load and render posts without writing output"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	format, err := config.ParseLogFormat(c.LogFormat)
	if err != nil {
		return ferrors.ValidationError("invalid --log-format").WithCause(err).Build()
	}
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	setupLogging(os.Stderr, level, format)
	return nil
}

// applyConfigLogging lets the configuration file choose logging defaults
// for whatever the flags left unset.
func (c *CLI) applyConfigLogging(cfg *config.Config) {
	level := cfg.Logging.Level
	if c.Verbose {
		level = config.LogLevelDebug
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	setupLogging(os.Stderr, level, format)
}

func setupLogging(w io.Writer, level config.LogLevel, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	var h slog.Handler
	if format == config.LogFormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}
