// Package gate decides whether Den may be installed on this host.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"

	"deninstall/internal/platform"
	"deninstall/pkg/runtime"
)

// Step names the check that disqualified the host.
type Step string

const (
	StepNone           Step = ""
	StepInstalled      Step = "installed"
	StepRunning        Step = "running"
	StepRuntimeVersion Step = "runtime-version"
	StepComposeVersion Step = "compose-version"
)

// RunningPolicy selects what a stopped daemon means.
type RunningPolicy string

const (
	// PolicyRequire fails the gate when the daemon is not running.
	PolicyRequire RunningPolicy = "require"
	// PolicyDefer passes the gate when the daemon is not running and skips the
	// version checks, which need a live daemon.
	PolicyDefer RunningPolicy = "defer"
)

// Probe is what was learned about the host during one evaluation.
type Probe struct {
	Installed      bool
	Running        bool
	ServerVersion  *semver.Version
	ComposeVersion *semver.Version
}

type Decision struct {
	Satisfied bool
	// Reason is the remediation text; empty when satisfied.
	Reason string
	Step   Step
	// Deferred is set when PolicyDefer let a stopped daemon through.
	Deferred bool
	Probe    Probe
}

type Gate struct {
	fs        afero.Fs
	platform  platform.Platform
	prober    runtime.Prober
	threshold Threshold
	policy    RunningPolicy
}

func New(fs afero.Fs, p platform.Platform, prober runtime.Prober, threshold Threshold, policy RunningPolicy) *Gate {
	if policy == "" {
		policy = PolicyRequire
	}
	return &Gate{
		fs:        fs,
		platform:  p,
		prober:    prober,
		threshold: threshold,
		policy:    policy,
	}
}

// Evaluate probes the host in order (installed, running, runtime version,
// compose version) and stops at the first failure. It never returns an error.
func (g *Gate) Evaluate(ctx context.Context) Decision {
	var probe Probe

	probe.Installed = g.installed()
	if !probe.Installed {
		return g.fail(StepInstalled, probe)
	}

	running, err := g.prober.Running(ctx)
	if err != nil {
		// a marker without a usable client is not an installation
		slog.Warn("Docker client could not be executed", "binary", g.platform.RuntimeBinaryPath(), "error", err)
		probe.Installed = false
		return g.fail(StepInstalled, probe)
	}
	probe.Running = running
	if !probe.Running {
		if g.policy == PolicyDefer {
			slog.Warn("Docker is installed but not running; version checks deferred until it starts")
			return Decision{Satisfied: true, Deferred: true, Probe: probe}
		}
		return g.fail(StepRunning, probe)
	}

	raw, err := g.prober.ServerVersion(ctx)
	if err == nil {
		probe.ServerVersion, err = ParseVersion(raw)
	}
	if err != nil {
		slog.Warn("Docker server version query failed", "error", err)
		return g.fail(StepRuntimeVersion, probe)
	}
	if !Satisfies(probe.ServerVersion, g.threshold.Runtime) {
		slog.Info("Docker server version below minimum", "version", probe.ServerVersion, "minimum", g.threshold.Runtime)
		return g.fail(StepRuntimeVersion, probe)
	}

	raw, err = g.prober.ComposeVersion(ctx)
	if err == nil {
		probe.ComposeVersion, err = ParseVersion(raw)
	}
	if err != nil {
		slog.Warn("Docker Compose version query failed", "error", err)
		return g.fail(StepComposeVersion, probe)
	}
	if !Satisfies(probe.ComposeVersion, g.threshold.Compose) {
		slog.Info("Docker Compose version below minimum", "version", probe.ComposeVersion, "minimum", g.threshold.Compose)
		return g.fail(StepComposeVersion, probe)
	}

	slog.Info("Runtime requirements satisfied", "docker", probe.ServerVersion, "compose", probe.ComposeVersion)
	return Decision{Satisfied: true, Probe: probe}
}

func (g *Gate) installed() bool {
	for _, path := range g.platform.InstalledMarkerPaths() {
		_, err := g.fs.Stat(path)
		if err == nil {
			return true
		}
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Cannot stat Docker install marker", "path", path, "error", err)
		}
	}
	slog.Info("Docker installation not found", "platform", g.platform.Name(), "markers", g.platform.InstalledMarkerPaths())
	return false
}

func (g *Gate) fail(step Step, probe Probe) Decision {
	return Decision{
		Satisfied: false,
		Reason:    g.threshold.Remediation(),
		Step:      step,
		Probe:     probe,
	}
}
