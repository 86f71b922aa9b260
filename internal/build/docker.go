package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	dockermount "github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"git.home.luguber.info/inful/docsbuild/internal/logfields"
	"git.home.luguber.info/inful/docsbuild/internal/mount"
)

// DefaultImage ships mkdocs with the material theme.
const DefaultImage = "squidfunk/mkdocs-material:latest"

// removeTimeout bounds container removal, which runs after ctx may be done.
const removeTimeout = 30 * time.Second

// ContainerAPI is the subset of the Docker client used by DockerRuntime.
// *client.Client satisfies it.
type ContainerAPI interface {
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerKill(ctx context.Context, containerID, signal string) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// NewDockerClient creates a Docker client using environment defaults.
func NewDockerClient(host string) (*client.Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	c, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return c, nil
}

// DockerOptions configures DockerRuntime.
type DockerOptions struct {
	Image string
	// Pull fetches the image when the daemon does not have it.
	Pull bool
	// User runs the generator as uid:gid; empty means the caller's ids so
	// that output files are owned by whoever ran the build.
	User string
	// Network is the container network mode; "none" isolates the generator.
	Network string
}

// DockerRuntime runs the generator in a throwaway container with the content
// bind-mounted read-only and the output bind-mounted writable.
type DockerRuntime struct {
	api  ContainerAPI
	opts DockerOptions
}

func NewDockerRuntime(api ContainerAPI, opts DockerOptions) *DockerRuntime {
	if opts.Image == "" {
		opts.Image = DefaultImage
	}
	if opts.User == "" {
		opts.User = fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
	}
	return &DockerRuntime{api: api, opts: opts}
}

func (r *DockerRuntime) Name() string { return "docker" }

// bindMount translates a mount.Spec into a Docker bind mount, carrying the
// access mode through as the ReadOnly flag.
func bindMount(m mount.Spec) dockermount.Mount {
	return dockermount.Mount{
		Type:     dockermount.TypeBind,
		Source:   m.HostPath(),
		Target:   m.ContainerPath(),
		ReadOnly: m.Mode() == mount.ReadOnly,
	}
}

func (r *DockerRuntime) Run(ctx context.Context, job Job) (int, error) {
	if len(job.Command) == 0 {
		return -1, ErrEmptyCommand
	}
	args := ExpandCommand(job.Command, job.Content.ContainerPath(), job.Output.ContainerPath(), job.ConfigFile)

	cfg := &container.Config{
		Image:      r.opts.Image,
		Cmd:        args,
		Env:        job.Env.Environ(),
		WorkingDir: job.Content.ContainerPath(),
		User:       r.opts.User,
		Labels:     map[string]string{"io.docsbuild.role": "generator"},
	}
	hostCfg := &container.HostConfig{
		Mounts: []dockermount.Mount{bindMount(job.Content), bindMount(job.Output)},
	}
	if r.opts.Network != "" {
		hostCfg.NetworkMode = container.NetworkMode(r.opts.Network)
	}

	name := "docsbuild-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	id, err := r.create(ctx, cfg, hostCfg, name)
	if err != nil {
		if ctx.Err() != nil {
			return -1, context.Cause(ctx)
		}
		return -1, err
	}
	log := slog.With(logfields.Runtime(r.Name()), logfields.Container(name))
	defer r.remove(ctx, id, log)

	// Register the wait before starting so a fast exit cannot be missed.
	statusCh, errCh := r.api.ContainerWait(ctx, id, container.WaitConditionNextExit)
	if err := r.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		if ctx.Err() != nil {
			return -1, context.Cause(ctx)
		}
		return -1, fmt.Errorf("start container: %w", err)
	}
	log.Debug("Started generator container", logfields.Command(strings.Join(args, " ")))

	var code int
	select {
	case status := <-statusCh:
		if status.Error != nil && status.Error.Message != "" {
			return -1, fmt.Errorf("wait for container: %s", status.Error.Message)
		}
		code = int(status.StatusCode)
	case err := <-errCh:
		if ctx.Err() != nil {
			r.kill(id, log)
			return -1, context.Cause(ctx)
		}
		return -1, fmt.Errorf("wait for container: %w", err)
	case <-ctx.Done():
		r.kill(id, log)
		return -1, context.Cause(ctx)
	}

	if err := r.copyLogs(ctx, id, job.Stdout, job.Stderr); err != nil {
		log.Warn("Failed to collect generator output", logfields.Error(err))
	}
	return code, nil
}

func (r *DockerRuntime) create(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, name string) (string, error) {
	resp, err := r.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil && client.IsErrNotFound(err) && r.opts.Pull {
		if pullErr := r.pull(ctx); pullErr != nil {
			return "", pullErr
		}
		resp, err = r.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	}
	if err != nil {
		return "", fmt.Errorf("create container from %s: %w", cfg.Image, err)
	}
	return resp.ID, nil
}

func (r *DockerRuntime) pull(ctx context.Context) error {
	slog.InfoContext(ctx, "Pulling generator image", slog.String("image", r.opts.Image))
	rc, err := r.api.ImagePull(ctx, r.opts.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", r.opts.Image, err)
	}
	defer func() {
		_ = rc.Close()
	}()
	// The pull only completes once its progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull %s: %w", r.opts.Image, err)
	}
	return nil
}

func (r *DockerRuntime) copyLogs(ctx context.Context, id string, stdout, stderr io.Writer) error {
	rc, err := r.api.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return err
	}
	defer func() {
		_ = rc.Close()
	}()
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	_, err = stdcopy.StdCopy(stdout, stderr, rc)
	return err
}

// kill stops a running container. ctx is already done here, so the call
// runs on a fresh bounded context.
func (r *DockerRuntime) kill(id string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()
	if err := r.api.ContainerKill(ctx, id, "SIGKILL"); err != nil && !client.IsErrNotFound(err) {
		log.Warn("Failed to kill generator container", logfields.Error(err))
	}
}

func (r *DockerRuntime) remove(ctx context.Context, id string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), removeTimeout)
	defer cancel()
	err := r.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true})
	if err != nil && !client.IsErrNotFound(err) && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn("Failed to remove generator container", logfields.Error(err))
	}
}
