package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/docker/docker/client"
	"github.com/spf13/afero"

	"deninstall/internal/config"
	"deninstall/internal/execx"
	"deninstall/internal/platform"
	internalruntime "deninstall/internal/runtime"
	"deninstall/internal/source"
	"deninstall/internal/ui"
	"deninstall/pkg/runtime"
)

// ComponentFactory builds the host-facing collaborators from configuration,
// keeping the workflow independent of concrete probes.
type ComponentFactory struct {
	cfg    *config.Config
	fs     afero.Fs
	runner execx.Runner
}

func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{cfg: cfg, fs: afero.NewOsFs(), runner: execx.NewOSRunner()}
}

// GetPlatform returns the adapter for this OS. A configured binary wins;
// otherwise the binary is resolved against the install markers so the gate
// runs the same docker it found.
func (f *ComponentFactory) GetPlatform() (platform.Platform, error) {
	p, err := platform.Current()
	if err != nil {
		return nil, err
	}
	if f.cfg.Runtime.Binary != "" {
		return platform.WithBinary(p, f.cfg.Runtime.Binary), nil
	}
	return platform.Resolve(f.fs, p), nil
}

// GetProber returns the prober for the configured probe mode. dockerClient
// may be nil unless mode is api.
func (f *ComponentFactory) GetProber(mode, binary string, dockerClient *client.Client) (runtime.Prober, error) {
	cli := internalruntime.NewCLIProber(f.runner, binary)
	switch mode {
	case config.ProbeCLI:
		return cli, nil
	case config.ProbeAPI:
		if dockerClient == nil {
			return nil, fmt.Errorf("probe mode %s requires a Docker API client", mode)
		}
		return internalruntime.NewDaemonProber(dockerClient, cli), nil
	default:
		return nil, fmt.Errorf("unsupported probe mode: %s", mode)
	}
}

// Dependencies assembles everything App needs. The returned closer releases
// the Docker API client.
func (f *ComponentFactory) Dependencies() (Dependencies, func(), error) {
	noop := func() {}

	p, err := f.GetPlatform()
	if err != nil {
		return Dependencies{}, noop, err
	}

	dockerClient, err := internalruntime.NewDockerClient()
	if err != nil {
		if f.cfg.Runtime.Probe == config.ProbeAPI {
			return Dependencies{}, noop, err
		}
		slog.Warn("Docker API client unavailable; service verification disabled", "error", err)
		dockerClient = nil
	}
	closer := noop
	if dockerClient != nil {
		closer = func() {
			if err := dockerClient.Close(); err != nil {
				slog.Warn("Failed to close Docker client", "error", err)
			}
		}
	}

	prober, err := f.GetProber(f.cfg.Runtime.Probe, p.RuntimeBinaryPath(), dockerClient)
	if err != nil {
		closer()
		return Dependencies{}, noop, err
	}

	deps := Dependencies{
		Fs:       f.fs,
		Platform: p,
		Runner:   f.runner,
		Prober:   prober,
		Fetcher:  source.NewFetcher(),
		Console:  ui.NewConsole(),
		Out:      os.Stdout,
	}
	if dockerClient != nil {
		deps.Verifier = internalruntime.NewComposeVerifier(dockerClient)
	}
	return deps, closer, nil
}

// Dependencies are the collaborators App drives.
type Dependencies struct {
	Fs       afero.Fs
	Platform platform.Platform
	Runner   execx.Runner
	Prober   runtime.Prober
	Verifier runtime.ServiceVerifier
	Fetcher  HeadFetcher
	Console  *ui.Console
	Out      io.Writer
	// HomeDir and BaseEnv default to the operator's when empty.
	HomeDir string
	BaseEnv []string
}
