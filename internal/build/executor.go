package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
	ferrors "git.home.luguber.info/inful/docsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/docsbuild/internal/logfields"
	"git.home.luguber.info/inful/docsbuild/internal/mount"
)

// DefaultTimeout bounds a generator run when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// Options configures an Executor.
type Options struct {
	// Command is the generator argv; placeholders are expanded per runtime.
	Command    []string
	ConfigFile string
	Timeout    time.Duration

	// Clean empties the output directory before the run.
	Clean bool

	// Completion receives exactly one line after a successful run.
	Completion io.Writer

	// Stdout and Stderr, when set, receive a live copy of the generator output.
	// The Result always carries the full captured streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs the generator once per Execute call.
type Executor struct {
	runtime Runtime
	opts    Options
	now     func() time.Time
}

// NewExecutor applies defaults for unset options.
func NewExecutor(rt Runtime, opts Options) *Executor {
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	if opts.ConfigFile == "" {
		opts.ConfigFile = DefaultConfigFile
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Executor{runtime: rt, opts: opts, now: time.Now}
}

// Execute runs the generator with env exported, content mounted read-only and
// output mounted writable.
//
// A Result is returned whenever the generator was started. Its status is
// succeeded, failed, timed_out or canceled; for every status but succeeded the
// error is non-nil and wraps ErrGeneratorFailed, ErrTimedOut or ErrCanceled.
// Errors raised before the generator starts (mount validation, lock, staging,
// runtime failures) come back with a nil Result.
func (e *Executor) Execute(ctx context.Context, env buildenv.BuildEnvironment, content, output mount.Spec) (*Result, error) {
	if env.IsZero() {
		return nil, ferrors.InternalError("build environment not resolved").Build()
	}
	if err := mount.ValidatePair(content, output); err != nil {
		return nil, ferrors.ConfigError("invalid mounts").WithCause(err).Build()
	}

	lock, err := mount.LockOutput(output)
	if err != nil {
		if errors.Is(err, ErrOutputBusy) {
			return nil, ferrors.BuildError("output mount is busy").
				WithCause(err).
				WithContext("output", output.HostPath()).
				Build()
		}
		return nil, ferrors.FileSystemError("cannot lock output mount").WithCause(err).Build()
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.WarnContext(ctx, "Failed to release output lock", logfields.Path(lock.Path()), logfields.Error(err))
		}
	}()

	if err := e.prepareOutput(output.HostPath()); err != nil {
		return nil, ferrors.FileSystemError("cannot prepare output mount").
			WithCause(err).
			WithContext("output", output.HostPath()).
			Build()
	}

	runCtx, cancel := context.WithTimeoutCause(ctx, e.opts.Timeout, ErrTimedOut)
	defer cancel()

	var stdout, stderr bytes.Buffer
	job := Job{
		Command:    e.opts.Command,
		ConfigFile: e.opts.ConfigFile,
		Env:        env,
		Content:    content,
		Output:     output,
		Stdout:     tee(&stdout, e.opts.Stdout),
		Stderr:     tee(&stderr, e.opts.Stderr),
	}

	start := e.now()
	code, runErr := e.runtime.Run(runCtx, job)
	end := e.now()

	res := &Result{
		ExitCode:   code,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Start:      start,
		End:        end,
		Duration:   end.Sub(start),
		OutputRoot: output.HostPath(),
		Runtime:    e.runtime.Name(),
	}

	switch {
	case runErr != nil && errors.Is(context.Cause(runCtx), ErrTimedOut) && ctx.Err() == nil:
		res.Status = StatusTimedOut
		res.Reason = fmt.Sprintf("generator did not finish within %s", e.opts.Timeout)
		return res, ferrors.TimeoutError(res.Reason).
			WithCause(ErrTimedOut).
			WithContext("timeout", e.opts.Timeout.String()).
			Build()
	case runErr != nil && ctx.Err() != nil:
		res.Status = StatusCanceled
		res.Reason = "build canceled before the generator finished"
		return res, ferrors.CanceledError(res.Reason).
			WithCause(fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))).
			Build()
	case errors.Is(runErr, ErrContentModified):
		res.Status = StatusFailed
		res.Reason = "content mount modified by the generator"
		slog.WarnContext(ctx, "Generator wrote to the read-only content mount", logfields.Error(runErr))
		return res, ferrors.BuildError(res.Reason).
			WithCause(runErr).
			WithContext(ferrors.ContextExitCode, code).
			Build()
	case runErr != nil:
		return nil, ferrors.RuntimeError("cannot run generator").
			WithCause(runErr).
			WithContext("runtime", e.runtime.Name()).
			Build()
	case code != 0:
		res.Status = StatusFailed
		res.Reason = fmt.Sprintf("generator exited with status %d", code)
		return res, ferrors.BuildError(res.Reason).
			WithCause(ErrGeneratorFailed).
			WithContext(ferrors.ContextExitCode, code).
			Build()
	}

	res.Status = StatusSucceeded
	e.complete(res)
	return res, nil
}

// prepareOutput makes sure the output directory exists and, when Clean is set,
// removes its previous contents without removing the directory itself: a
// bind-mounted directory must keep its inode.
func (e *Executor) prepareOutput(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	if !e.opts.Clean {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) complete(res *Result) {
	if e.opts.Completion == nil {
		return
	}
	_, _ = fmt.Fprintf(e.opts.Completion, "Build completed in %s: site written to %s\n",
		res.Duration.Round(time.Millisecond), res.OutputRoot)
}

func tee(buf *bytes.Buffer, live io.Writer) io.Writer {
	if live == nil {
		return buf
	}
	return io.MultiWriter(buf, live)
}
