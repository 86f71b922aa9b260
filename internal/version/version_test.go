package version

import (
	"runtime/debug"
	"testing"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if BuildTime == "" || GitCommit == "" {
		t.Error("build metadata should be initialized")
	}
}

func stubBuildInfo(t *testing.T, info *debug.BuildInfo, ok bool) {
	t.Helper()
	prev := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, ok }
	t.Cleanup(func() { readBuildInfo = prev })
}

func TestCommitPrefersLdflags(t *testing.T) {
	prev := GitCommit
	GitCommit = "deadbeef"
	t.Cleanup(func() { GitCommit = prev })
	stubBuildInfo(t, &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "cafe"}}}, true)

	if got := Commit(); got != "deadbeef" {
		t.Errorf("Commit() = %q, want deadbeef", got)
	}
}

func TestCommitFallsBackToBuildInfo(t *testing.T) {
	prev := GitCommit
	GitCommit = "unknown"
	t.Cleanup(func() { GitCommit = prev })
	stubBuildInfo(t, &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "cafe"}}}, true)

	if got := Commit(); got != "cafe" {
		t.Errorf("Commit() = %q, want cafe", got)
	}
}

func TestCommitWithoutBuildInfo(t *testing.T) {
	prev := GitCommit
	GitCommit = "unknown"
	t.Cleanup(func() { GitCommit = prev })
	stubBuildInfo(t, nil, false)

	if got := Commit(); got != "unknown" {
		t.Errorf("Commit() = %q, want unknown", got)
	}
}
