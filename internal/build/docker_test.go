package build

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsbuild/internal/mount"
)

// fakeDocker records calls and replays a scripted container lifecycle.
type fakeDocker struct {
	mu sync.Mutex

	missingImage bool
	exitCode     int64
	hang         bool // never report an exit
	stdout       string
	stderr       string

	pulled  []string
	config  *container.Config
	host    *container.HostConfig
	name    string
	killed  bool
	removed bool
	creates int
}

func (f *fakeDocker) ImagePull(_ context.Context, ref string, _ image.PullOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled = append(f.pulled, ref)
	f.missingImage = false
	return io.NopCloser(bytes.NewBufferString(`{"status":"Downloaded"}`)), nil
}

func (f *fakeDocker) ContainerCreate(_ context.Context, cfg *container.Config, host *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.missingImage {
		return container.CreateResponse{}, errdefs.NotFound(errors.New("No such image: " + cfg.Image))
	}
	f.config, f.host, f.name = cfg, host, name
	return container.CreateResponse{ID: "c0ffee"}, nil
}

func (f *fakeDocker) ContainerStart(context.Context, string, container.StartOptions) error {
	return nil
}

func (f *fakeDocker) ContainerWait(ctx context.Context, _ string, _ container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	statusCh := make(chan container.WaitResponse, 1)
	errCh := make(chan error, 1)
	if f.hang {
		go func() {
			<-ctx.Done()
			errCh <- ctx.Err()
		}()
		return statusCh, errCh
	}
	statusCh <- container.WaitResponse{StatusCode: f.exitCode}
	return statusCh, errCh
}

func (f *fakeDocker) ContainerLogs(context.Context, string, container.LogsOptions) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if f.stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(f.stdout))
	}
	if f.stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(f.stderr))
	}
	return io.NopCloser(&buf), nil
}

func (f *fakeDocker) ContainerKill(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = true
	return nil
}

func (f *fakeDocker) ContainerRemove(context.Context, string, container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = true
	return nil
}

func TestDockerRuntime_MountsAndEnvironment(t *testing.T) {
	fx := newFixture(t)
	api := &fakeDocker{stdout: "INFO - Documentation built\n"}
	var completion bytes.Buffer
	exec := NewExecutor(NewDockerRuntime(api, DockerOptions{Image: "docs:test", User: "1000:1000"}), Options{
		Timeout:    5 * time.Second,
		Completion: &completion,
	})

	res, err := exec.Execute(context.Background(), testEnv, fx.content, fx.output)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, "docker", res.Runtime)
	assert.Equal(t, "INFO - Documentation built\n", res.Stdout)
	assert.NotEmpty(t, completion.String())

	require.NotNil(t, api.config)
	assert.Equal(t, "docs:test", api.config.Image)
	assert.Equal(t, []string{"mkdocs", "build", "--site-dir", "/site"}, []string(api.config.Cmd))
	assert.Equal(t, mount.ContentContainerPath, api.config.WorkingDir)
	assert.Equal(t, testEnv.Environ(), api.config.Env)
	assert.Equal(t, "1000:1000", api.config.User)

	require.Len(t, api.host.Mounts, 2)
	content, output := api.host.Mounts[0], api.host.Mounts[1]
	assert.Equal(t, fx.content.HostPath(), content.Source)
	assert.Equal(t, "/workspace", content.Target)
	assert.True(t, content.ReadOnly)
	assert.Equal(t, fx.output.HostPath(), output.Source)
	assert.Equal(t, "/site", output.Target)
	assert.False(t, output.ReadOnly)

	assert.True(t, api.removed)
	assert.Contains(t, api.name, "docsbuild-")
}

func TestDockerRuntime_NonZeroExit(t *testing.T) {
	fx := newFixture(t)
	api := &fakeDocker{exitCode: 1, stderr: "ERROR - Config value 'theme': Unrecognised theme\n"}
	exec := NewExecutor(NewDockerRuntime(api, DockerOptions{}), Options{Timeout: 5 * time.Second})

	res, err := exec.Execute(context.Background(), testEnv, fx.content, fx.output)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stderr, "Unrecognised theme")
	assert.ErrorIs(t, err, ErrGeneratorFailed)
	assert.Equal(t, DefaultImage, api.config.Image)
}

func TestDockerRuntime_TimeoutKillsContainer(t *testing.T) {
	fx := newFixture(t)
	api := &fakeDocker{hang: true}
	exec := NewExecutor(NewDockerRuntime(api, DockerOptions{}), Options{Timeout: 100 * time.Millisecond})

	res, err := exec.Execute(context.Background(), testEnv, fx.content, fx.output)
	require.Error(t, err)
	assert.Equal(t, StatusTimedOut, res.Status)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.True(t, api.killed)
	assert.True(t, api.removed)
}

func TestDockerRuntime_PullsMissingImage(t *testing.T) {
	fx := newFixture(t)
	api := &fakeDocker{missingImage: true}
	exec := NewExecutor(NewDockerRuntime(api, DockerOptions{Image: "docs:new", Pull: true}), Options{Timeout: 5 * time.Second})

	_, err := exec.Execute(context.Background(), testEnv, fx.content, fx.output)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs:new"}, api.pulled)
	assert.Equal(t, 2, api.creates)
}

func TestDockerRuntime_MissingImageWithoutPull(t *testing.T) {
	fx := newFixture(t)
	api := &fakeDocker{missingImage: true}
	exec := NewExecutor(NewDockerRuntime(api, DockerOptions{Image: "docs:new"}), Options{Timeout: 5 * time.Second})

	res, err := exec.Execute(context.Background(), testEnv, fx.content, fx.output)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Empty(t, api.pulled)
}

func TestBindMount_CarriesAccessMode(t *testing.T) {
	fx := newFixture(t)
	assert.True(t, bindMount(fx.content).ReadOnly)
	assert.False(t, bindMount(fx.output).ReadOnly)
}
