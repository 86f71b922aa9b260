// Package pipeline runs one documentation build: resolve the environment,
// execute the generator, validate the artifacts.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/docsbuild/internal/artifact"
	"git.home.luguber.info/inful/docsbuild/internal/build"
	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
	ferrors "git.home.luguber.info/inful/docsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/docsbuild/internal/git"
	"git.home.luguber.info/inful/docsbuild/internal/logfields"
	"git.home.luguber.info/inful/docsbuild/internal/metrics"
	"git.home.luguber.info/inful/docsbuild/internal/mount"
	"git.home.luguber.info/inful/docsbuild/internal/observability"
)

// Stage names used for logging, metrics and the report.
const (
	StageEnvironment = "environment"
	StageBuild       = "build"
	StageValidate    = "validate"
)

// EnvironmentResolver produces the build environment.
type EnvironmentResolver interface {
	Resolve(ctx context.Context) (buildenv.BuildEnvironment, error)
}

// BuildExecutor runs the generator.
type BuildExecutor interface {
	Execute(ctx context.Context, env buildenv.BuildEnvironment, content, output mount.Spec) (*build.Result, error)
}

// ArtifactValidator checks a generated tree.
type ArtifactValidator interface {
	Validate(ctx context.Context, in artifact.Input) *artifact.Report
}

// Request describes one build.
type Request struct {
	Content mount.Spec
	Output  mount.Spec

	// SkipValidation stops after a successful generator run.
	SkipValidation bool
}

// Pipeline wires the three stages. It holds no per-build state and may run
// several builds one after another.
type Pipeline struct {
	resolver  EnvironmentResolver
	executor  BuildExecutor
	validator ArtifactValidator
	recorder  metrics.Recorder
	clock     clockwork.Clock
	newID     func() string
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithValidator enables the validate stage.
func WithValidator(v ArtifactValidator) Option {
	return func(p *Pipeline) { p.validator = v }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithIDGenerator replaces the uuid build id source.
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// New creates a pipeline. Without WithValidator the validate stage is skipped.
func New(resolver EnvironmentResolver, executor BuildExecutor, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		executor: executor,
		recorder: metrics.NoopRecorder{},
		clock:    clockwork.NewRealClock(),
		newID:    func() string { return uuid.NewString() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the stages in order and stops at the first failing stage.
// The returned report is never nil; the error is the classified error of the
// failing stage, or the aggregated validation error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	report := &Report{
		BuildID: p.newID(),
		Start:   p.clock.Now().UTC(),
	}
	ctx = observability.WithBuildID(ctx, report.BuildID)
	p.logger.InfoContext(ctx, "Build started",
		logfields.Mount(req.Content.HostPath()),
		logfields.Path(req.Output.HostPath()))

	err := p.run(ctx, req, report)

	report.End = p.clock.Now().UTC()
	report.Duration = report.End.Sub(report.Start)
	if err != nil {
		report.Error = err.Error()
	}
	p.recorder.ObserveBuildDuration(report.Duration)
	p.recorder.IncBuildOutcome(report.Status.outcome())

	attrs := []any{logfields.Status(string(report.Status)), logfields.Duration(report.Duration)}
	if err != nil {
		p.logger.ErrorContext(ctx, "Build finished", append(attrs, logfields.Error(err))...)
	} else {
		p.logger.InfoContext(ctx, "Build finished", attrs...)
	}
	return report, err
}

func (p *Pipeline) run(ctx context.Context, req Request, report *Report) error {
	// environment
	envCtx := observability.WithStage(ctx, StageEnvironment)
	stageStart := p.clock.Now()
	env, err := p.resolver.Resolve(envCtx)
	p.finishStage(envCtx, report, StageEnvironment, stageStart, err)
	if err != nil {
		report.Status = statusForError(err, StatusFailed)
		return err
	}
	report.Environment = env.Vars()

	// build
	buildCtx := observability.WithStage(ctx, StageBuild)
	stageStart = p.clock.Now()
	res, err := p.executor.Execute(buildCtx, env, req.Content, req.Output)
	report.Build = res
	p.finishStage(buildCtx, report, StageBuild, stageStart, err)
	if err != nil {
		fallback := StatusFailed
		if res != nil {
			fallback = Status(res.Status)
		}
		report.Status = statusForError(err, fallback)
		return err
	}

	if p.validator == nil || req.SkipValidation {
		report.Stages = append(report.Stages, StageTiming{Name: StageValidate, Result: StageSkipped})
		report.Status = StatusSucceeded
		return nil
	}

	// validate
	valCtx := observability.WithStage(ctx, StageValidate)
	stageStart = p.clock.Now()
	root := req.Output.HostPath()
	if res != nil && res.OutputRoot != "" {
		root = res.OutputRoot
	}
	rep := p.validator.Validate(valCtx, artifact.Input{
		Root:             root,
		Env:              env,
		HasSourceControl: git.HasMetadata(req.Content.HostPath()),
	})
	report.Validation = rep
	err = rep.Err()
	p.finishStage(valCtx, report, StageValidate, stageStart, err)
	if err != nil {
		report.Status = StatusInvalid
		return err
	}
	report.Status = StatusSucceeded
	return nil
}

func (p *Pipeline) finishStage(ctx context.Context, report *Report, stage string, start time.Time, err error) {
	d := p.clock.Since(start)
	result := stageResult(err)
	p.recorder.ObserveStageDuration(stage, d)
	p.recorder.IncStageResult(stage, result)
	report.Stages = append(report.Stages, StageTiming{Name: stage, Duration: d, Result: string(result)})
	p.logger.DebugContext(ctx, "Stage finished", logfields.Status(string(result)), logfields.Duration(d))
}

func stageResult(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case ferrors.HasCategory(err, ferrors.CategoryCanceled):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}

func statusForError(err error, fallback Status) Status {
	switch ferrors.GetCategory(err) {
	case ferrors.CategoryCanceled:
		return StatusCanceled
	case ferrors.CategoryTimeout:
		return StatusTimedOut
	}
	return fallback
}
