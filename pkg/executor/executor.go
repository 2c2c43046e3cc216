// Package executor runs a single container to completion and captures its
// output. It is a thin synchronous layer over the runtime abstraction: no
// retries, no timeout, no incremental log streaming.
package executor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opendatastudio/opendatago/pkg/runtime"
)

// MountPath is where the datapackage base path is bind-mounted inside the
// container. The containerized program finds its data here.
const MountPath = "/usr/src/app/datapackage"

// ExecutionError indicates a container exited with a non-zero status. The
// captured logs are the primary diagnostic artifact, not the message.
type ExecutionError struct {
	// Message is the human-readable failure description.
	Message string

	// Logs is the container's combined output, surrounding whitespace
	// trimmed.
	Logs string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return e.Message
}

// Executor runs containers against a runtime.
type Executor struct {
	rt     runtime.Runtime
	logger zerolog.Logger
}

// New creates an executor on top of the given runtime.
func New(rt runtime.Runtime, logger zerolog.Logger) *Executor {
	return &Executor{
		rt:     rt,
		logger: logger.With().Str("component", "executor").Logger(),
	}
}

// Run starts one container from image with basePath mounted read/write at
// MountPath and env injected, blocks until it exits, and returns its
// combined logs. The container runs as the invoking host user so files it
// writes into the mount stay owned by the caller. A non-zero exit status
// yields an ExecutionError carrying the same logs.
func (x *Executor) Run(ctx context.Context, image, basePath string, env map[string]string) (string, error) {
	x.logger.Info().
		Str("image", image).
		Str("base_path", basePath).
		Msg("Starting container")

	// Detached start so the handle, and through it the logs, stay
	// reachable when the run fails.
	handle, err := x.rt.Start(ctx, runtime.StartOptions{
		Image: image,
		Binds: []string{fmt.Sprintf("%s:%s", basePath, MountPath)},
		Env:   env,
		User:  strconv.Itoa(os.Getuid()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to start container from %s: %w", image, err)
	}

	exitCode, err := handle.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("failed waiting for container: %w", err)
	}

	// Logs are fetched exactly once, after the container has fully
	// exited, whatever the outcome was.
	raw, err := handle.Logs(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch logs: %w", err)
	}
	logs := strings.TrimSpace(string(raw))

	if exitCode != 0 {
		x.logger.Error().
			Str("image", image).
			Int64("exit_code", exitCode).
			Msg("Container execution failed")
		return "", &ExecutionError{
			Message: fmt.Sprintf("execution of %s failed with status code %d", image, exitCode),
			Logs:    logs,
		}
	}

	x.logger.Info().Str("image", image).Msg("Container execution completed")
	return logs, nil
}
