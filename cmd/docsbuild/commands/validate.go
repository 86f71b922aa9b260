package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/docsbuild/internal/artifact"
	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
	"git.home.luguber.info/inful/docsbuild/internal/git"
	"git.home.luguber.info/inful/docsbuild/internal/metrics"
	"git.home.luguber.info/inful/docsbuild/internal/pipeline"
)

// ValidateCmd implements the 'validate' command. The environment the tree was
// built with comes from a build report, a dotenv file (as printed by
// 'env --format dotenv') or explicit flags, in that order of precedence.
type ValidateCmd struct {
	Root      string `arg:"" help:"Output tree to validate" type:"existingdir"`
	Report    string `help:"Build report holding the environment" type:"existingfile" xor:"source"`
	EnvFile   string `name:"env-file" help:"Dotenv file holding the environment" type:"existingfile" xor:"source"`
	BuildDate string `name:"build-date" help:"BUILD_DATE the tree was built with" xor:"source"`
	GitInfo   string `name:"git-info" help:"GIT_INFO the tree was built with"`
	Content   string `help:"Source tree; source-control metadata there requires revision evidence" type:"path"`
}

func (v *ValidateCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if v.Content != "" {
		cfg.Content = v.Content
	}
	if err := root.finishConfig(g, cfg); err != nil {
		return err
	}

	env, err := v.environment()
	if err != nil {
		return configErr("cannot determine build environment", err)
	}
	validator, err := newValidator(cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	report := validator.Validate(ctx, artifact.Input{
		Root:             v.Root,
		Env:              env,
		HasSourceControl: git.HasMetadata(cfg.Content),
	})
	PrintChecks(g.stdout(), report)
	return report.Err()
}

func (v *ValidateCmd) environment() (buildenv.BuildEnvironment, error) {
	switch {
	case v.Report != "":
		r, err := pipeline.ReadReport(v.Report)
		if err != nil {
			return buildenv.BuildEnvironment{}, err
		}
		if len(r.Environment) == 0 {
			return buildenv.BuildEnvironment{}, fmt.Errorf("report %s has no environment", v.Report)
		}
		return buildenv.FromVars(r.Environment)
	case v.EnvFile != "":
		vars, err := godotenv.Read(v.EnvFile)
		if err != nil {
			return buildenv.BuildEnvironment{}, fmt.Errorf("read %s: %w", v.EnvFile, err)
		}
		return buildenv.FromVars(vars)
	case v.BuildDate != "":
		return buildenv.FromVars(map[string]string{
			buildenv.KeyBuildDate: v.BuildDate,
			buildenv.KeyGitInfo:   v.GitInfo,
		})
	default:
		return buildenv.BuildEnvironment{}, fmt.Errorf("one of --report, --env-file or --build-date is required")
	}
}

// PrintChecks writes one line per check.
func PrintChecks(w io.Writer, report *artifact.Report) {
	for _, c := range report.Checks {
		if c.Passed {
			_, _ = fmt.Fprintf(w, "PASS %s\n", c.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "FAIL %s: %s\n", c.Name, c.Reason)
	}
}
