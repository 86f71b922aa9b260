package build

import (
	"context"
	"io"

	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
	"git.home.luguber.info/inful/docsbuild/internal/mount"
)

// Job is one generator invocation handed to a Runtime.
type Job struct {
	// Command is the generator argv before placeholder expansion.
	Command    []string
	ConfigFile string

	Env     buildenv.BuildEnvironment
	Content mount.Spec
	Output  mount.Spec

	Stdout io.Writer
	Stderr io.Writer
}

// Runtime hosts the generator process.
//
// Run blocks until the generator exits and returns its exit status. A
// non-zero status is not an error. When ctx ends first the runtime must stop
// the generator and everything it spawned, then return context.Cause(ctx).
// Any other error means the generator could not be run at all.
type Runtime interface {
	Name() string
	Run(ctx context.Context, job Job) (exitCode int, err error)
}
