package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
	"git.home.luguber.info/inful/docsbuild/internal/foundation/normalization"
)

// EnvFormat selects how the env command prints variables.
type EnvFormat string

const (
	EnvFormatExport EnvFormat = "export"
	EnvFormatDotenv EnvFormat = "dotenv"
	EnvFormatJSON   EnvFormat = "json"
)

var envFormats = normalization.NewNormalizer("env format", map[string]EnvFormat{
	"export": EnvFormatExport,
	"shell":  EnvFormatExport,
	"dotenv": EnvFormatDotenv,
	"env":    EnvFormatDotenv,
	"json":   EnvFormatJSON,
}, EnvFormatExport)

// EnvCmd implements the 'env' command.
type EnvCmd struct {
	Content string `help:"Documentation source tree probed for GIT_INFO (overrides content)" type:"path"`
	GitInfo string `name:"git-info" help:"Pin GIT_INFO instead of probing the content tree"`
	Format  string `short:"f" help:"Output format (export|dotenv|json)" default:"export"`
}

func (e *EnvCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	format, err := envFormats.Parse(e.Format)
	if err != nil {
		return configErr("invalid --format", err)
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if e.Content != "" {
		cfg.Content = e.Content
	}
	if e.GitInfo != "" {
		pinned := e.GitInfo
		cfg.Git.Info = &pinned
	}
	if err := root.finishConfig(g, cfg); err != nil {
		return err
	}

	env, err := newResolver(cfg).Resolve(ctx)
	if err != nil {
		return err
	}
	return WriteEnv(g.stdout(), env, format)
}

// WriteEnv prints env in the requested format.
func WriteEnv(w io.Writer, env buildenv.BuildEnvironment, format EnvFormat) error {
	switch format {
	case EnvFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env.Vars())
	case EnvFormatDotenv:
		out, err := godotenv.Marshal(env.Vars())
		if err != nil {
			return fmt.Errorf("encode dotenv: %w", err)
		}
		_, err = fmt.Fprintln(w, out)
		return err
	default:
		for _, key := range buildenv.Keys() {
			v, _ := env.Get(key)
			if _, err := fmt.Fprintf(w, "export %s=%s\n", key, shellQuote(v)); err != nil {
				return err
			}
		}
		return nil
	}
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
