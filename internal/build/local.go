package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"git.home.luguber.info/inful/docsbuild/internal/logfields"
	"git.home.luguber.info/inful/docsbuild/internal/mount"
	"git.home.luguber.info/inful/docsbuild/internal/workspace"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// group has been killed.
const waitDelay = 5 * time.Second

// LocalRuntime runs the generator as a host process. The content mount is
// staged into a read-only copy inside a workspace and the process runs in its
// own process group so that the whole group can be killed.
type LocalRuntime struct {
	workspaceDir string
	keep         bool
}

// NewLocalRuntime stages content under workspaceDir (os.TempDir when empty).
// With keep set the staging copy survives the run for inspection.
func NewLocalRuntime(workspaceDir string, keep bool) *LocalRuntime {
	return &LocalRuntime{workspaceDir: workspaceDir, keep: keep}
}

func (r *LocalRuntime) Name() string { return "local" }

func (r *LocalRuntime) newWorkspace() *workspace.Manager {
	if r.keep {
		return workspace.NewPersistentManager(r.workspaceDir, "docsbuild-staging")
	}
	return workspace.NewManager(r.workspaceDir)
}

func (r *LocalRuntime) Run(ctx context.Context, job Job) (int, error) {
	if len(job.Command) == 0 {
		return -1, ErrEmptyCommand
	}

	ws := r.newWorkspace()
	if err := ws.Create(); err != nil {
		return -1, err
	}
	defer func() {
		if ws.Persistent() {
			slog.InfoContext(ctx, "Keeping staging workspace", logfields.Path(ws.GetPath()))
			return
		}
		if err := ws.Cleanup(); err != nil {
			slog.WarnContext(ctx, "Failed to clean staging workspace", logfields.Path(ws.GetPath()), logfields.Error(err))
		}
	}()

	content, err := mount.StageReadOnly(ctx, ws, job.Content)
	if err != nil {
		if ctx.Err() != nil {
			return -1, context.Cause(ctx)
		}
		return -1, err
	}
	if writable, err := mount.Writable(content.HostPath()); err != nil {
		return -1, err
	} else if writable {
		return -1, fmt.Errorf("staged content %s is still writable", content.HostPath())
	}
	snap, err := mount.TakeSnapshot(content.HostPath())
	if err != nil {
		return -1, err
	}

	args := ExpandCommand(job.Command, content.HostPath(), job.Output.HostPath(), job.ConfigFile)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) // #nosec G204 -- generator command is operator configuration
	cmd.Dir = content.HostPath()
	cmd.Env = job.Env.Merge(os.Environ())
	cmd.Stdout = job.Stdout
	cmd.Stderr = job.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid addresses the process group.
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	slog.DebugContext(ctx, "Starting generator",
		logfields.Runtime(r.Name()),
		logfields.Command(fmt.Sprint(args)),
		logfields.Mount(content.String()),
		logfields.Path(job.Output.HostPath()))

	code, err := wait(ctx, cmd, args[0])
	if err != nil {
		return code, err
	}
	// Permission bits bind neither root nor the owner of the copy.
	if err := snap.Verify(); err != nil {
		return code, err
	}
	return code, nil
}

func wait(ctx context.Context, cmd *exec.Cmd, name string) (int, error) {
	err := cmd.Run()
	if ctx.Err() != nil && err != nil {
		return -1, context.Cause(ctx)
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		// The generator exited cleanly but left a child holding its output open.
		slog.WarnContext(ctx, "Generator left background processes running; killing its process group", logfields.Command(name))
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		return 0, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("run %s: %w", name, err)
	}
	return 0, nil
}
