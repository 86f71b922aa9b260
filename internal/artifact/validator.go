package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
	ferrors "git.home.luguber.info/inful/docsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/docsbuild/internal/logfields"
	"git.home.luguber.info/inful/docsbuild/internal/metrics"
)

// ErrValidationFailed is wrapped by Report.Err when any check failed.
var ErrValidationFailed = errors.New("docsbuild: artifact validation failed")

// Options tunes the content checks. Zero values select the defaults.
type Options struct {
	YearSample       int
	GitSample        int
	BuildDatePattern string
	RevisionPattern  string
}

// Input is what one validation run inspects.
type Input struct {
	Root             string
	Env              buildenv.BuildEnvironment
	HasSourceControl bool
}

// CheckResult is the outcome of one rule.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// Report lists every check in evaluation order.
type Report struct {
	Root   string        `json:"root"`
	Checks []CheckResult `json:"checks"`
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	return len(r.Failures()) == 0
}

func (r *Report) Failures() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Err returns nil when all checks passed, otherwise a validation error naming
// every failed check.
func (r *Report) Err() error {
	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	lines := make([]string, 0, len(failures))
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, f.Name+": "+f.Reason)
		names = append(names, f.Name)
	}
	return ferrors.ValidationError(fmt.Sprintf("%d artifact check(s) failed", len(failures))).
		WithCause(fmt.Errorf("%w:\n  %s", ErrValidationFailed, strings.Join(lines, "\n  "))).
		WithContext("failed_checks", names).
		WithContext("root", r.Root).
		Build()
}

// Validator runs the artifact rules.
type Validator struct {
	rules    []Rule
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewValidator compiles the evidence patterns and builds the rule set.
func NewValidator(opts Options, recorder metrics.Recorder) (*Validator, error) {
	if opts.YearSample <= 0 {
		opts.YearSample = DefaultYearSample
	}
	if opts.GitSample <= 0 {
		opts.GitSample = DefaultGitSample
	}
	if opts.BuildDatePattern == "" {
		opts.BuildDatePattern = DefaultBuildDatePattern
	}
	if opts.RevisionPattern == "" {
		opts.RevisionPattern = DefaultRevisionPattern
	}
	datePattern, err := regexp.Compile(opts.BuildDatePattern)
	if err != nil {
		return nil, ferrors.ConfigError("invalid build date pattern").WithCause(err).Build()
	}
	revPattern, err := regexp.Compile(opts.RevisionPattern)
	if err != nil {
		return nil, ferrors.ConfigError("invalid revision pattern").WithCause(err).Build()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Validator{
		rules: []Rule{
			RootEntryRule{},
			NestedEntryRule{},
			CurrentYearRule{Sample: opts.YearSample},
			BuildDateRule{Sample: opts.YearSample, Pattern: datePattern},
			GitInfoRule{Sample: opts.GitSample, Pattern: revPattern},
		},
		recorder: recorder,
		logger:   slog.Default(),
	}, nil
}

// Rules returns the rule names in evaluation order.
func (v *Validator) Rules() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.Name()
	}
	return names
}

// Validate evaluates every rule against the tree at in.Root. It never stops
// at the first failure. The tree is only read.
func (v *Validator) Validate(ctx context.Context, in Input) *Report {
	report := &Report{Root: in.Root}

	tree, err := OpenTree(in.Root)
	if err != nil {
		for _, r := range v.rules {
			report.Checks = append(report.Checks, CheckResult{Name: r.Name(), Reason: err.Error()})
			v.recorder.IncValidationCheck(r.Name(), false)
		}
		return report
	}

	vctx := Context{
		Tree:             tree,
		Env:              in.Env,
		HasSourceControl: in.HasSourceControl,
		Logger:           v.logger,
		texts:            newTextCache(),
	}
	for _, r := range v.rules {
		res := r.Validate(ctx, vctx)
		report.Checks = append(report.Checks, CheckResult{Name: r.Name(), Passed: res.Passed, Reason: res.Reason})
		v.recorder.IncValidationCheck(r.Name(), res.Passed)
		if !res.Passed {
			v.logger.WarnContext(ctx, "Artifact check failed", logfields.Check(r.Name()), slog.String("reason", res.Reason))
		} else {
			v.logger.DebugContext(ctx, "Artifact check passed", logfields.Check(r.Name()))
		}
	}
	return report
}
