package version

import (
	"fmt"
	"runtime/debug"
)

// Version contains the application version information.
// Set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/docsbuild/internal/version.Version=v1.0.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Commit returns GitCommit, falling back to the vcs.revision recorded by the
// Go toolchain when ldflags did not set it.
func Commit() string {
	if GitCommit != "unknown" && GitCommit != "" {
		return GitCommit
	}
	info, ok := readBuildInfo()
	if !ok {
		return GitCommit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return GitCommit
}

// String formats the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("docsbuild %s (commit %s, built %s)", Version, Commit(), BuildTime)
}
