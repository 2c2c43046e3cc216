package runtime

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"
)

// DockerRuntime implements Runtime against a Docker engine.
type DockerRuntime struct {
	client *client.Client
	logger zerolog.Logger
}

// DockerHandle refers to a container started by DockerRuntime.
type DockerHandle struct {
	client      *client.Client
	containerID string
}

// NewDockerRuntime creates a runtime talking to the Docker engine
// configured in the environment (DOCKER_HOST and friends).
func NewDockerRuntime(logger zerolog.Logger) (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerRuntime{
		client: cli,
		logger: logger.With().Str("component", "docker-runtime").Logger(),
	}, nil
}

// Start implements Runtime. The image is pulled first if it is not present
// locally.
func (d *DockerRuntime) Start(ctx context.Context, opts StartOptions) (Handle, error) {
	if _, err := d.client.ImageInspect(ctx, opts.Image); err != nil {
		d.logger.Info().Str("image", opts.Image).Msg("Image not found locally, pulling")
		reader, err := d.client.ImagePull(ctx, opts.Image, image.PullOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to pull image %s: %w", opts.Image, err)
		}
		defer reader.Close()
		_, _ = io.Copy(io.Discard, reader)
	}

	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	// Tty keeps the log stream unmultiplexed so Logs returns plain text.
	containerConfig := &container.Config{
		Image: opts.Image,
		Env:   env,
		User:  opts.User,
		Tty:   true,
	}
	hostConfig := &container.HostConfig{
		Binds: opts.Binds,
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := d.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	d.logger.Debug().
		Str("image", opts.Image).
		Str("container_id", resp.ID).
		Msg("Container started")

	return &DockerHandle{client: d.client, containerID: resp.ID}, nil
}

// Wait blocks until the container is no longer running.
func (h *DockerHandle) Wait(ctx context.Context) (int64, error) {
	statusCh, errCh := h.client.ContainerWait(ctx, h.containerID, container.WaitConditionNotRunning)

	select {
	case err := <-errCh:
		return -1, fmt.Errorf("failed to wait for container: %w", err)
	case status := <-statusCh:
		if status.Error != nil {
			return status.StatusCode, fmt.Errorf("container wait: %s", status.Error.Message)
		}
		return status.StatusCode, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Logs fetches the container's combined stdout and stderr in one read.
func (h *DockerHandle) Logs(ctx context.Context) ([]byte, error) {
	reader, err := h.client.ContainerLogs(ctx, h.containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch container logs: %w", err)
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
