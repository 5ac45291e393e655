// Package runtime holds the contracts used to interrogate the host
// container runtime.
package runtime

import (
	"context"
	"errors"
)

// ErrUnavailable means the runtime client could not be executed at all,
// which is different from a daemon that does not answer.
var ErrUnavailable = errors.New("container runtime client unavailable")

// Prober answers the questions the requirement gate asks the container runtime.
type Prober interface {
	// Running reports whether the daemon answers. The error is non-nil, and
	// wraps ErrUnavailable, only when the client itself cannot be run.
	Running(ctx context.Context) (bool, error)
	// ServerVersion returns the raw engine version string.
	ServerVersion(ctx context.Context) (string, error)
	// ComposeVersion returns the raw compose plugin version string.
	ComposeVersion(ctx context.Context) (string, error)
}

// ServiceStatus summarises the containers of one compose service.
type ServiceStatus struct {
	Project    string
	Service    string
	Containers int
	Running    int
}

// Up reports at least one running container for the service.
func (s ServiceStatus) Up() bool {
	return s.Running > 0
}

// ServiceVerifier inspects compose-managed containers after bring-up.
type ServiceVerifier interface {
	ServiceStatus(ctx context.Context, project, service string) (ServiceStatus, error)
}
