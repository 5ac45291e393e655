package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"deninstall/pkg/runtime"
)

const (
	composeProjectLabel = "com.docker.compose.project"
	composeServiceLabel = "com.docker.compose.service"
)

// daemonAPI is the subset of the Docker client the prober relies on.
type daemonAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ServerVersion(ctx context.Context) (types.Version, error)
	Close() error
}

// DaemonProber talks to the engine API directly. Compose is a CLI plugin, so
// its version is still read through the CLI.
type DaemonProber struct {
	api     daemonAPI
	compose *CLIProber
}

// NewDockerClient creates an API client from the standard DOCKER_* environment.
func NewDockerClient() (*client.Client, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return dockerClient, nil
}

// NewDaemonProber wraps an existing client. Unlike the CLI prober it does not
// require the daemon to be reachable at construction time.
func NewDaemonProber(dockerClient *client.Client, compose *CLIProber) *DaemonProber {
	return &DaemonProber{api: dockerClient, compose: compose}
}

func (p *DaemonProber) Running(ctx context.Context) (bool, error) {
	if _, err := p.api.Ping(ctx); err != nil {
		slog.Info("Docker daemon ping failed", "error", err)
		return false, nil
	}
	return true, nil
}

func (p *DaemonProber) ServerVersion(ctx context.Context) (string, error) {
	v, err := p.api.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to query Docker server version: %w", err)
	}
	if strings.TrimSpace(v.Version) == "" {
		return "", fmt.Errorf("docker daemon reported an empty server version")
	}
	return strings.TrimSpace(v.Version), nil
}

func (p *DaemonProber) ComposeVersion(ctx context.Context) (string, error) {
	return p.compose.ComposeVersion(ctx)
}

func (p *DaemonProber) Close() error {
	return p.api.Close()
}

// ComposeVerifier reads compose labels off containers to confirm a service
// came up.
type ComposeVerifier struct {
	client *client.Client
}

func NewComposeVerifier(dockerClient *client.Client) *ComposeVerifier {
	return &ComposeVerifier{client: dockerClient}
}

func (v *ComposeVerifier) ServiceStatus(ctx context.Context, project, service string) (runtime.ServiceStatus, error) {
	status := runtime.ServiceStatus{Project: project, Service: service}

	list, err := v.client.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", composeProjectLabel+"="+project),
			filters.Arg("label", composeServiceLabel+"="+service),
		),
	})
	if err != nil {
		return status, fmt.Errorf("failed to list containers for %s/%s: %w", project, service, err)
	}

	for _, c := range list {
		status.Containers++
		if c.State == "running" {
			status.Running++
		}
	}

	slog.Info("Compose service status", "project", project, "service", service, "containers", status.Containers, "running", status.Running)
	return status, nil
}
