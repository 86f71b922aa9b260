package commands

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/docsbuild/internal/artifact"
	"git.home.luguber.info/inful/docsbuild/internal/build"
	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
	"git.home.luguber.info/inful/docsbuild/internal/config"
	ferrors "git.home.luguber.info/inful/docsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/docsbuild/internal/git"
	"git.home.luguber.info/inful/docsbuild/internal/logfields"
	"git.home.luguber.info/inful/docsbuild/internal/metrics"
	"git.home.luguber.info/inful/docsbuild/internal/mount"
	"git.home.luguber.info/inful/docsbuild/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Content       string        `help:"Documentation source tree (overrides content)" type:"path"`
	Output        string        `short:"o" help:"Output directory for the generated site (overrides output.directory)" type:"path"`
	Runtime       string        `help:"Generator runtime (local|docker)"`
	Image         string        `help:"Container image for the docker runtime"`
	Timeout       time.Duration `help:"Generator timeout (overrides generator.timeout)"`
	NoClean       bool          `name:"no-clean" help:"Keep existing files in the output directory"`
	KeepWorkspace bool          `name:"keep-workspace" help:"Keep the read-only staging copy after the build"`
	GitInfo       string        `name:"git-info" help:"Pin GIT_INFO instead of probing the content tree"`
	Report        string        `help:"Write a JSON build report to this path (outside the output directory)" type:"path"`
	MetricsFile   string        `name:"metrics-file" help:"Write Prometheus metrics in textfile format to this path" type:"path"`
	NoValidate    bool          `name:"no-validate" help:"Skip artifact validation"`
	ShowOutput    bool          `name:"show-output" help:"Stream generator output to stderr while it runs"`
}

func (b *BuildCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	b.apply(cfg)
	if err := root.finishConfig(g, cfg); err != nil {
		return err
	}
	return RunBuild(ctx, g, cfg, b.ShowOutput)
}

// apply copies flag overrides onto cfg.
func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Content != "" {
		cfg.Content = b.Content
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Runtime != "" {
		cfg.Runtime.Kind = config.RuntimeKind(b.Runtime)
	}
	if b.Image != "" {
		cfg.Runtime.Docker.Image = b.Image
	}
	if b.Timeout > 0 {
		cfg.Generator.Timeout = config.Duration(b.Timeout)
	}
	if b.NoClean {
		cfg.Output.Clean = false
	}
	if b.KeepWorkspace {
		cfg.Runtime.KeepWorkspace = true
	}
	if b.GitInfo != "" {
		pinned := b.GitInfo
		cfg.Git.Info = &pinned
	}
	if b.Report != "" {
		cfg.Report.Path = b.Report
	}
	if b.MetricsFile != "" {
		cfg.Metrics.Textfile = b.MetricsFile
	}
	if b.NoValidate {
		cfg.Validation.Enabled = false
	}
}

// RunBuild wires the pipeline from cfg and runs one build.
func RunBuild(ctx context.Context, g *Global, cfg *config.Config, showOutput bool) error {
	content, err := mount.NewContent(cfg.Content)
	if err != nil {
		return ferrors.ConfigError("invalid content directory").WithCause(err).Build()
	}
	output, err := mount.NewOutput(cfg.Output.Directory)
	if err != nil {
		return ferrors.ConfigError("invalid output directory").WithCause(err).Build()
	}

	rt, closeRuntime, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer closeRuntime()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var prom *metrics.PrometheusRecorder
	if cfg.Metrics.Textfile != "" {
		prom = metrics.NewPrometheusRecorder(nil)
		recorder = prom
	}

	opts := build.Options{
		Command:    cfg.Generator.Command,
		ConfigFile: cfg.Generator.ConfigFile,
		Timeout:    cfg.Generator.Timeout.Std(),
		Clean:      cfg.Output.Clean,
		Completion: g.stdout(),
	}
	if showOutput {
		opts.Stdout = g.stderr()
		opts.Stderr = g.stderr()
	}

	pipeOpts := []pipeline.Option{pipeline.WithRecorder(recorder)}
	if cfg.Validation.Enabled {
		v, err := newValidator(cfg, recorder)
		if err != nil {
			return err
		}
		pipeOpts = append(pipeOpts, pipeline.WithValidator(v))
	}

	p := pipeline.New(newResolver(cfg), build.NewExecutor(rt, opts), pipeOpts...)
	report, runErr := p.Run(ctx, pipeline.Request{Content: content, Output: output})

	if cfg.Report.Path != "" {
		if err := report.Write(cfg.Report.Path); err != nil {
			slog.Warn("Failed to write build report", logfields.Path(cfg.Report.Path), logfields.Error(err))
		}
	}
	if prom != nil {
		if err := prom.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(cfg.Metrics.Textfile), logfields.Error(err))
		}
	}
	if report.Build != nil && !report.Build.Status.IsSuccess() && report.Build.Stderr != "" && !showOutput {
		writeTail(g.stderr(), report.Build.Stderr)
	}
	return runErr
}

func newResolver(cfg *config.Config) *buildenv.Resolver {
	opts := []buildenv.Option{
		buildenv.WithSourceDir(cfg.Content),
		buildenv.WithProbeOptions(git.ProbeOptions{CheckDirty: cfg.Git.CheckDirty}),
	}
	if cfg.Git.Info != nil {
		opts = append(opts, buildenv.WithGitInfo(*cfg.Git.Info))
	}
	return buildenv.NewResolver(opts...)
}

func newValidator(cfg *config.Config, recorder metrics.Recorder) (*artifact.Validator, error) {
	v, err := artifact.NewValidator(artifact.Options{
		YearSample:       cfg.Validation.YearSample,
		GitSample:        cfg.Validation.GitSample,
		BuildDatePattern: cfg.Validation.BuildDatePattern,
		RevisionPattern:  cfg.Validation.RevisionPattern,
	}, recorder)
	if err != nil {
		return nil, err
	}
	slog.Debug("Artifact checks enabled", slog.Any("checks", v.Rules()))
	return v, nil
}

func newRuntime(cfg *config.Config) (build.Runtime, func(), error) {
	if cfg.Runtime.Kind != config.RuntimeDocker {
		return build.NewLocalRuntime(cfg.Runtime.WorkspaceDir, cfg.Runtime.KeepWorkspace), func() {}, nil
	}
	cli, err := build.NewDockerClient(cfg.Runtime.Docker.Host)
	if err != nil {
		return nil, nil, ferrors.RuntimeError("cannot connect to docker").WithCause(err).Build()
	}
	rt := build.NewDockerRuntime(cli, build.DockerOptions{
		Image:   cfg.Runtime.Docker.Image,
		Pull:    cfg.Runtime.Docker.Pull,
		User:    cfg.Runtime.Docker.User,
		Network: cfg.Runtime.Docker.Network,
	})
	return rt, func() { _ = cli.Close() }, nil
}

// tailLines bounds the generator stderr echoed after a failed build.
const tailLines = 20

func writeTail(w io.Writer, stderr string) {
	var lines []string
	for line := range strings.Lines(stderr) {
		lines = append(lines, line)
	}
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	_, _ = io.WriteString(w, "--- generator stderr ---\n")
	for _, l := range lines {
		_, _ = io.WriteString(w, strings.TrimRight(l, "\n")+"\n")
	}
}
