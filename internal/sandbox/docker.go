package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
)

const dockerWorkDir = "/box"

// DockerRuntime runs every process in a throwaway container of the
// toolchain's image with networking disabled and all capabilities dropped.
type DockerRuntime struct {
	cli      *client.Client
	user     string
	nanoCPUs int64
	logger   *slog.Logger
}

type DockerOption func(*DockerRuntime)

// WithUser sets the uid:gid programs run as.
func WithUser(user string) DockerOption {
	return func(d *DockerRuntime) { d.user = user }
}

// WithCPUs limits each container to the given number of CPUs.
func WithCPUs(cpus float64) DockerOption {
	return func(d *DockerRuntime) { d.nanoCPUs = int64(cpus * 1e9) }
}

// NewDockerClient connects using the DOCKER_* environment.
func NewDockerClient() (*client.Client, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

func NewDockerRuntime(cli *client.Client, logger *slog.Logger, opts ...DockerOption) *DockerRuntime {
	d := &DockerRuntime{
		cli:      cli,
		user:     "65534:65534",
		nanoCPUs: 1e9,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DockerRuntime) Name() string {
	return "docker"
}

// Version reports the docker daemon version.
func (d *DockerRuntime) Version(ctx context.Context) (string, error) {
	v, err := d.cli.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return "docker " + v.Version, nil
}

// EnsureImages pulls the images that are not present locally.
func (d *DockerRuntime) EnsureImages(ctx context.Context, images []string) error {
	for _, img := range images {
		_, _, err := d.cli.ImageInspectWithRaw(ctx, img)
		if err == nil {
			continue
		}
		if !errdefs.IsNotFound(err) {
			return fmt.Errorf("failed to inspect image %s: %w", img, err)
		}
		d.logger.Info("pulling image", "image", img)
		rc, err := d.cli.ImagePull(ctx, img, image.PullOptions{})
		if err != nil {
			return fmt.Errorf("failed to pull image %s: %w", img, err)
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to pull image %s: %w", img, err)
		}
	}
	return nil
}

func (d *DockerRuntime) Exec(ctx context.Context, spec ExecSpec) (*RunData, error) {
	if len(spec.Argv) == 0 {
		return nil, errors.New("empty command")
	}
	if spec.Image == "" {
		return nil, errors.New("toolchain has no container image")
	}

	cfg := &container.Config{
		Image:           spec.Image,
		Cmd:             spec.Argv,
		WorkingDir:      dockerWorkDir,
		User:            d.user,
		Env:             []string{"HOME=" + dockerWorkDir, "TMPDIR=/tmp", "LANG=C.UTF-8"},
		NetworkDisabled: true,
		AttachStdin:     true,
		AttachStdout:    true,
		AttachStderr:    true,
		OpenStdin:       true,
		StdinOnce:       true,
	}
	host := &container.HostConfig{
		NetworkMode:    "none",
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		ReadonlyRootfs: true,
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: spec.Dir,
			Target: dockerWorkDir,
		}},
		Tmpfs: map[string]string{"/tmp": "rw,exec,size=64m"},
	}
	if spec.Limits.MemoryKiB > 0 {
		host.Resources.Memory = spec.Limits.MemoryBytes()
		host.Resources.MemorySwap = host.Resources.Memory
	}
	if spec.Limits.MaxProcesses > 0 {
		pids := int64(spec.Limits.MaxProcesses)
		host.Resources.PidsLimit = &pids
	}
	host.Resources.NanoCPUs = d.nanoCPUs

	created, err := d.cli.ContainerCreate(ctx, cfg, host, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	id := created.ID
	defer func() {
		rmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.cli.ContainerRemove(rmCtx, id, container.RemoveOptions{Force: true}); err != nil {
			d.logger.Error("failed to remove container", "id", id, "error", err)
		}
	}()

	attach, err := d.cli.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to container: %w", err)
	}
	defer attach.Close()

	stdout := newCappedBuffer(spec.outputLimit())
	stderr := newCappedBuffer(spec.outputLimit())
	copied := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(stdout, stderr, attach.Reader)
		copied <- err
	}()

	start := time.Now()
	if err := d.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	go func() {
		if spec.Stdin != nil {
			_, _ = io.Copy(attach.Conn, spec.Stdin)
		}
		_ = attach.CloseWrite()
	}()

	runCtx := ctx
	if spec.Limits.WallTime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Limits.WallTime)
		defer cancel()
	}

	data := &RunData{}
	statusCh, errCh := d.cli.ContainerWait(runCtx, id, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("container wait: %s", status.Error.Message)
		}
		data.ExitCode = status.StatusCode
	case err := <-errCh:
		if ctx.Err() != nil || !errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("container wait: %w", err)
		}
		data.TimedOut = true
		killCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.cli.ContainerKill(killCtx, id, "KILL"); err != nil && !errdefs.IsNotFound(err) {
			d.logger.Warn("failed to kill container", "id", id, "error", err)
		}
	}
	data.WallMs = time.Since(start).Milliseconds()

	select {
	case <-copied:
	case <-time.After(2 * time.Second):
		// a leftover process may still hold the streams open
		_ = attach.Conn.Close()
		<-copied
	}
	data.Stdout = stdout.Bytes()
	data.Stderr = stderr.Bytes()

	inspectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	inspect, err := d.cli.ContainerInspect(inspectCtx, id)
	if err == nil && inspect.ContainerJSONBase != nil && inspect.State != nil {
		data.OOMKilled = inspect.State.OOMKilled
	}
	if data.ExitCode > 128 && !data.TimedOut {
		sig := data.ExitCode - 128
		data.ExitSignal = &sig
	}

	return data, nil
}
