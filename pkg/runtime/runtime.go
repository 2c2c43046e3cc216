// Package runtime abstracts the container engine behind a narrow
// capability surface: start a container, wait for it, fetch its logs.
// The executor and engine are written against this interface so they can
// be tested without a real container engine.
package runtime

import (
	"context"
)

// StartOptions describes a single container run.
type StartOptions struct {
	// Image is the container image to run.
	Image string

	// Binds are host:container mount specifications.
	Binds []string

	// Env are environment variables injected into the container.
	Env map[string]string

	// User is the uid (or uid:gid) the container process runs as. Empty
	// means the image default.
	User string
}

// Handle refers to a started container.
type Handle interface {
	// Wait blocks until the container reaches a terminal state and
	// returns its exit code.
	Wait(ctx context.Context) (int64, error)

	// Logs retrieves the container's combined output. Valid after the
	// container has exited.
	Logs(ctx context.Context) ([]byte, error)
}

// Runtime starts containers.
type Runtime interface {
	// Start launches a container in detached mode and returns a handle
	// to it.
	Start(ctx context.Context, opts StartOptions) (Handle, error)
}
