package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsbuild/internal/artifact"
	"git.home.luguber.info/inful/docsbuild/internal/build"
	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
	ferrors "git.home.luguber.info/inful/docsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/docsbuild/internal/metrics"
	"git.home.luguber.info/inful/docsbuild/internal/mount"
)

var buildTime = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

// siteScript renders a small two-section site showing the environment.
const siteScript = `set -e
mkdir -p "$1/guide"
for p in index.html guide/index.html; do
  printf '<html><body><p>%s</p><footer>&copy; %s &middot; Built %s</footer></body></html>' "$GIT_INFO" "$CURRENT_YEAR" "$BUILD_DATE" > "$1/$p"
done`

func shell(script string) []string {
	return []string{"sh", "-c", script, "sh", build.PlaceholderSiteDir}
}

func contentDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mkdocs.yml"), []byte("site_name: Docs\n"), 0o600))
	return dir
}

func gitContentDir(t *testing.T) string {
	t.Helper()
	dir := contentDir(t)
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("mkdocs.yml")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Docs", Email: "docs@example.com", When: buildTime},
	})
	require.NoError(t, err)
	return dir
}

func request(t *testing.T, src string) Request {
	t.Helper()
	content, err := mount.NewContent(src)
	require.NoError(t, err)
	output, err := mount.NewOutput(filepath.Join(t.TempDir(), "site"))
	require.NoError(t, err)
	return Request{Content: content, Output: output}
}

type harness struct {
	pipeline *Pipeline
	registry *prometheus.Registry
}

func newHarness(t *testing.T, src, script string, timeout time.Duration) harness {
	t.Helper()
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	resolver := buildenv.NewResolver(
		buildenv.WithClock(clockwork.NewFakeClockAt(buildTime)),
		buildenv.WithSourceDir(src),
	)
	executor := build.NewExecutor(build.NewLocalRuntime(t.TempDir(), false), build.Options{
		Command: shell(script),
		Timeout: timeout,
		Clean:   true,
	})
	validator, err := artifact.NewValidator(artifact.Options{}, rec)
	require.NoError(t, err)

	ids := 0
	p := New(resolver, executor,
		WithValidator(validator),
		WithRecorder(rec),
		WithIDGenerator(func() string {
			ids++
			return "build-" + strings.Repeat("x", ids)
		}),
	)
	return harness{pipeline: p, registry: reg}
}

func TestRun_Succeeds(t *testing.T) {
	src := contentDir(t)
	h := newHarness(t, src, siteScript, 10*time.Second)
	req := request(t, src)

	report, err := h.pipeline.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "build-x", report.BuildID)
	assert.Equal(t, StatusSucceeded, report.Status)
	assert.Empty(t, report.Error)
	assert.Equal(t, map[string]string{
		buildenv.KeyCurrentYear: "2026",
		buildenv.KeyBuildDate:   "2026-03-14 15:09:26 UTC",
		buildenv.KeyGitInfo:     "",
	}, report.Environment)
	require.NotNil(t, report.Build)
	assert.Equal(t, build.StatusSucceeded, report.Build.Status)
	require.NotNil(t, report.Validation)
	assert.True(t, report.Validation.Passed())

	names := make([]string, 0, len(report.Stages))
	for _, s := range report.Stages {
		names = append(names, s.Name)
		assert.Equal(t, string(metrics.ResultSuccess), s.Result)
	}
	assert.Equal(t, []string{StageEnvironment, StageBuild, StageValidate}, names)
	assert.False(t, report.End.Before(report.Start))

	expected := `
# HELP docsbuild_build_outcomes_total Build outcomes by final status
# TYPE docsbuild_build_outcomes_total counter
docsbuild_build_outcomes_total{outcome="success"} 1
# HELP docsbuild_stage_results_total Stage result counts by outcome
# TYPE docsbuild_stage_results_total counter
docsbuild_stage_results_total{result="success",stage="build"} 1
docsbuild_stage_results_total{result="success",stage="environment"} 1
docsbuild_stage_results_total{result="success",stage="validate"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.registry, strings.NewReader(expected),
		"docsbuild_build_outcomes_total", "docsbuild_stage_results_total"))
}

func TestRun_GitInfoFromSourceControl(t *testing.T) {
	src := gitContentDir(t)
	h := newHarness(t, src, siteScript, 10*time.Second)

	report, err := h.pipeline.Run(context.Background(), request(t, src))
	require.NoError(t, err)

	gitInfo := report.Environment[buildenv.KeyGitInfo]
	require.NotEmpty(t, gitInfo)
	assert.Len(t, artifact.ShortHash(gitInfo), 7)
	assert.True(t, report.Validation.Passed())
}

func TestRun_MissingRevisionEvidenceIsInvalid(t *testing.T) {
	src := gitContentDir(t)
	script := strings.ReplaceAll(siteScript, `"$GIT_INFO"`, `"no revision here"`)
	h := newHarness(t, src, script, 10*time.Second)

	report, err := h.pipeline.Run(context.Background(), request(t, src))
	require.Error(t, err)
	assert.ErrorIs(t, err, artifact.ErrValidationFailed)
	assert.Equal(t, StatusInvalid, report.Status)

	failures := report.Validation.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, artifact.CheckGitInfo, failures[0].Name)

	stage, ok := report.Stage(StageValidate)
	require.True(t, ok)
	assert.Equal(t, string(metrics.ResultFatal), stage.Result)
}

func TestRun_RootOnlyTreeFailsNestedCheck(t *testing.T) {
	src := contentDir(t)
	script := `printf '<html><body>%s %s</body></html>' "$CURRENT_YEAR" "$BUILD_DATE" > "$1/index.html"`
	h := newHarness(t, src, script, 10*time.Second)

	report, err := h.pipeline.Run(context.Background(), request(t, src))
	require.Error(t, err)
	assert.Equal(t, StatusInvalid, report.Status)
	require.Len(t, report.Validation.Failures(), 1)
	assert.Equal(t, artifact.CheckNestedEntry, report.Validation.Failures()[0].Name)
}

func TestRun_GeneratorFailureStopsBeforeValidation(t *testing.T) {
	src := contentDir(t)
	h := newHarness(t, src, `echo broken >&2; exit 4`, 10*time.Second)

	report, err := h.pipeline.Run(context.Background(), request(t, src))
	require.Error(t, err)
	assert.ErrorIs(t, err, build.ErrGeneratorFailed)
	assert.Equal(t, StatusFailed, report.Status)
	assert.Nil(t, report.Validation)
	require.NotNil(t, report.Build)
	assert.Equal(t, 4, report.Build.ExitCode)
	assert.Equal(t, "broken\n", report.Build.Stderr)

	_, ran := report.Stage(StageValidate)
	assert.False(t, ran)
	assert.Equal(t, 4, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestRun_TimeoutIsDistinctFromFailure(t *testing.T) {
	src := contentDir(t)
	h := newHarness(t, src, `sleep 5`, 200*time.Millisecond)

	report, err := h.pipeline.Run(context.Background(), request(t, src))
	require.Error(t, err)
	assert.ErrorIs(t, err, build.ErrTimedOut)
	assert.Equal(t, StatusTimedOut, report.Status)
	assert.NotEqual(t, StatusFailed, report.Status)
}

func TestRun_SkipValidation(t *testing.T) {
	src := contentDir(t)
	h := newHarness(t, src, `printf x > "$1/index.html"`, 10*time.Second)
	req := request(t, src)
	req.SkipValidation = true

	report, err := h.pipeline.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, report.Status)
	assert.Nil(t, report.Validation)

	stage, ok := report.Stage(StageValidate)
	require.True(t, ok)
	assert.Equal(t, StageSkipped, stage.Result)
}

func TestRun_RepeatableAcrossOutputs(t *testing.T) {
	src := contentDir(t)
	h := newHarness(t, src, siteScript, 10*time.Second)

	first, err := h.pipeline.Run(context.Background(), request(t, src))
	require.NoError(t, err)
	second, err := h.pipeline.Run(context.Background(), request(t, src))
	require.NoError(t, err)

	assert.NotEqual(t, first.BuildID, second.BuildID)
	diff, err := artifact.Compare(first.Build.OutputRoot, second.Build.OutputRoot)
	require.NoError(t, err)
	assert.True(t, diff.Equal(), diff.String())
}

type stubResolver struct{ err error }

func (s stubResolver) Resolve(context.Context) (buildenv.BuildEnvironment, error) {
	return buildenv.BuildEnvironment{}, s.err
}

type panicExecutor struct{}

func (panicExecutor) Execute(context.Context, buildenv.BuildEnvironment, mount.Spec, mount.Spec) (*build.Result, error) {
	panic("executor must not run")
}

func TestRun_ResolverFailureStopsPipeline(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status Status
		result string
	}{
		{"environment", ferrors.EnvironmentError("clock unavailable").Build(), StatusFailed, string(metrics.ResultFatal)},
		{"canceled", ferrors.CanceledError("interrupted").Build(), StatusCanceled, string(metrics.ResultCanceled)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(stubResolver{err: tc.err}, panicExecutor{})
			report, err := p.Run(context.Background(), request(t, contentDir(t)))
			require.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.status, report.Status)
			assert.Equal(t, tc.err.Error(), report.Error)
			require.Len(t, report.Stages, 1)
			assert.Equal(t, tc.result, report.Stages[0].Result)
			assert.Nil(t, report.Environment)
		})
	}
}
