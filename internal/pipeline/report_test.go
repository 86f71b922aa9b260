package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsbuild/internal/artifact"
	"git.home.luguber.info/inful/docsbuild/internal/build"
	"git.home.luguber.info/inful/docsbuild/internal/metrics"
)

func sampleReport() *Report {
	start := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	return &Report{
		BuildID:     "b-1",
		Status:      StatusInvalid,
		Environment: map[string]string{"CURRENT_YEAR": "2026", "BUILD_DATE": "2026-03-14 15:09:26 UTC", "GIT_INFO": ""},
		Build:       &build.Result{Status: build.StatusSucceeded, OutputRoot: "/tmp/site", Runtime: "local"},
		Validation: &artifact.Report{Root: "/tmp/site", Checks: []artifact.CheckResult{
			{Name: artifact.CheckNestedEntry, Passed: false, Reason: "no nested index.html"},
		}},
		Stages: []StageTiming{{Name: StageBuild, Duration: time.Second, Result: "success"}},
		Error:  "1 artifact check(s) failed",
		Start:  start,
		End:    start.Add(2 * time.Second),
	}
}

func TestReportWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "build.json")
	want := sampleReport()

	require.NoError(t, want.Write(path))

	got, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, want.BuildID, got.BuildID)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Environment, got.Environment)
	assert.Equal(t, want.Validation, got.Validation)
	assert.True(t, want.Start.Equal(got.Start))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestReportWriteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	require.NoError(t, sampleReport().Write(path))

	got, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "b-1", got.BuildID)
}

func TestReadReportRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := ReadReport(path)
	assert.Error(t, err)
}

func TestStatusOutcome(t *testing.T) {
	cases := map[Status]metrics.BuildOutcomeLabel{
		StatusSucceeded: metrics.BuildOutcomeSuccess,
		StatusFailed:    metrics.BuildOutcomeFailed,
		StatusTimedOut:  metrics.BuildOutcomeTimedOut,
		StatusCanceled:  metrics.BuildOutcomeCanceled,
		StatusInvalid:   metrics.BuildOutcomeInvalid,
		"":              metrics.BuildOutcomeFailed,
	}
	for status, want := range cases {
		assert.Equal(t, want, status.outcome(), string(status))
	}
}
