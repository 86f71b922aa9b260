package buildenv

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/docsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/docsbuild/internal/git"
	"git.home.luguber.info/inful/docsbuild/internal/logfields"
)

// Resolver derives a BuildEnvironment from a clock and an optional
// source-control directory.
type Resolver struct {
	clock       clockwork.Clock
	sourceDir   string
	gitOverride *string
	probe       git.ProbeOptions
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces the real clock; tests pass clockwork.NewFakeClockAt.
func WithClock(c clockwork.Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

// WithSourceDir names the directory probed for source-control metadata.
func WithSourceDir(dir string) Option {
	return func(r *Resolver) { r.sourceDir = dir }
}

// WithGitInfo pins GIT_INFO to value verbatim and skips the probe.
func WithGitInfo(value string) Option {
	return func(r *Resolver) { r.gitOverride = &value }
}

// WithProbeOptions tunes the source-control probe.
func WithProbeOptions(opts git.ProbeOptions) Option {
	return func(r *Resolver) { r.probe = opts }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver using the real clock unless overridden.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		clock:  clockwork.NewRealClock(),
		probe:  git.ProbeOptions{CheckDirty: true},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve reads the clock once and probes source control. A clock failure is
// fatal; an unavailable revision degrades GIT_INFO to the empty string.
func (r *Resolver) Resolve(ctx context.Context) (BuildEnvironment, error) {
	if err := ctx.Err(); err != nil {
		return BuildEnvironment{}, errors.CanceledError("environment resolution canceled").WithCause(err).Build()
	}

	now := r.clock.Now()
	if err := checkYear(now); err != nil {
		return BuildEnvironment{}, errors.EnvironmentError("cannot derive build timestamp").
			WithCause(err).
			WithContext("clock", now.String()).
			Build()
	}

	env := New(now, r.gitInfo(ctx))
	r.logger.DebugContext(ctx, "Resolved build environment",
		slog.String(KeyCurrentYear, env.CurrentYear()),
		slog.String(KeyBuildDate, env.BuildDate()),
		logfields.Revision(env.GitInfo()))
	return env, nil
}

func (r *Resolver) gitInfo(ctx context.Context) string {
	if r.gitOverride != nil {
		r.logger.DebugContext(ctx, "Using pinned revision descriptor", logfields.Revision(*r.gitOverride))
		return *r.gitOverride
	}
	if r.sourceDir == "" {
		r.logger.DebugContext(ctx, "No source directory configured; GIT_INFO left empty")
		return ""
	}
	rev := git.Probe(r.sourceDir, r.probe)
	if !rev.Available() {
		r.logger.DebugContext(ctx, "Source-control revision unavailable; GIT_INFO left empty",
			logfields.Path(r.sourceDir), logfields.Error(rev.Reason()))
		return ""
	}
	return rev.Descriptor()
}
