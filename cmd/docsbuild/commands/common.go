// Package commands implements the docsbuild command line.
package commands

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsbuild/internal/config"
	ferrors "git.home.luguber.info/inful/docsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/docsbuild/internal/observability"
)

// Global carries the process streams shared by all commands.
type Global struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func (g *Global) stdout() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) stderr() io.Writer {
	if g == nil || g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"${config_path}"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text|json); overrides logging.format"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Resolve the environment, run the generator and validate the site"`
	Env      EnvCmd      `cmd:"" help:"Print the build environment variables"`
	Validate ValidateCmd `cmd:"" help:"Validate an existing output tree"`
	Compare  CompareCmd  `cmd:"" help:"Compare the structure of two output trees"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	c.setLogger(g, level, config.NormalizeLogFormat(c.LogFormat))
	return nil
}

func (c *CLI) setLogger(g *Global, level slog.Level, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == config.LogFormatJSON {
		h = slog.NewJSONHandler(g.stderr(), opts)
	} else {
		h = slog.NewTextHandler(g.stderr(), opts)
	}
	logger := slog.New(observability.NewContextHandler(h))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
}

// loadConfig reads the configuration file and falls back to defaults when the
// default file is absent. Callers apply flag overrides, then finishConfig.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	switch {
	case errors.Is(err, config.ErrNotFound) && c.Config == config.DefaultPath:
		slog.Debug("No configuration file; using defaults", "path", c.Config)
		cfg = config.Default()
	case err != nil:
		return nil, ferrors.ConfigError("cannot load configuration").
			WithCause(err).
			WithContext("path", c.Config).
			Build()
	}
	return cfg, nil
}

// finishConfig validates cfg after command-line overrides were applied.
func (c *CLI) finishConfig(g *Global, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return ferrors.ConfigError("invalid configuration").WithCause(err).Build()
	}
	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	c.setLogger(g, level, format)
	return nil
}

// Vars are the kong interpolation variables used by the CLI definition.
func Vars(version string) kong.Vars {
	return kong.Vars{"config_path": config.DefaultPath, "version": version}
}

func configErr(msg string, err error) error {
	return ferrors.ConfigError(msg).WithCause(err).Build()
}
