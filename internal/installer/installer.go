// Package installer places a Den release on disk and brings up its
// dashboard service with docker compose.
package installer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	denerrors "deninstall/internal/errors"
	"deninstall/internal/execx"
	"deninstall/pkg/runtime"
)

const (
	VersionFileName = "version"
	DockerDirName   = "docker"
	ComposeFileName = "docker-compose.yml"

	DefaultProject         = "den"
	DefaultService         = "dashboard"
	DefaultVersionBuildArg = "DEN_VERSION"
)

type Options struct {
	// Binary is the docker CLI used for compose.
	Binary          string
	Project         string
	Service         string
	VersionBuildArg string
	FallbackBinDir  string
	HomeDir         string
	// BaseEnv is the environment the overlay is applied to; nil means os.Environ().
	BaseEnv []string
	DryRun  bool
	// Out receives dry-run output.
	Out io.Writer
	// Verifier, when set, confirms the service is running after bring-up.
	Verifier runtime.ServiceVerifier
}

type Orchestrator struct {
	fs     afero.Fs
	runner execx.Runner
	opts   Options
}

func New(fs afero.Fs, runner execx.Runner, opts Options) *Orchestrator {
	if opts.Binary == "" {
		opts.Binary = "docker"
	}
	if opts.Project == "" {
		opts.Project = DefaultProject
	}
	if opts.Service == "" {
		opts.Service = DefaultService
	}
	if opts.VersionBuildArg == "" {
		opts.VersionBuildArg = DefaultVersionBuildArg
	}
	if opts.BaseEnv == nil {
		opts.BaseEnv = os.Environ()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Orchestrator{fs: fs, runner: runner, opts: opts}
}

// Install copies every file under payloadRoot into prefix unchanged.
func (o *Orchestrator) Install(payloadRoot, prefix string) error {
	info, err := o.fs.Stat(payloadRoot)
	if err != nil || !info.IsDir() {
		return denerrors.NewInstallError(
			"Failed to install the Den release payload",
			fmt.Sprintf("payload directory %s does not exist or is not a directory", payloadRoot),
			"Pass the unpacked release directory with --payload, or use --head to fetch it",
			fmt.Errorf("payload root not found: %s", payloadRoot),
		)
	}

	if o.opts.DryRun {
		fmt.Fprintf(o.opts.Out, "DRY RUN: Would copy %s to %s\n", payloadRoot, prefix)
		return nil
	}

	if err := o.fs.MkdirAll(prefix, 0755); err != nil {
		return denerrors.NewFileSystemError(
			"Failed to create the install prefix",
			err.Error(),
			"Check that you can write to "+prefix,
			fmt.Errorf("failed to create prefix %s: %w", prefix, err),
		)
	}

	copied, err := copyTree(o.fs, payloadRoot, prefix)
	if err != nil {
		return denerrors.NewFileSystemError(
			"Failed to copy the Den release into the install prefix",
			err.Error(),
			"Check free disk space and permissions on "+prefix,
			fmt.Errorf("failed to copy payload: %w", err),
		)
	}

	slog.Info("Release payload installed", "payload", payloadRoot, "prefix", prefix, "entries", copied)
	return nil
}

// Environment returns the overlay PostInstall hands to docker compose.
func (o *Orchestrator) Environment(prefix string) Environment {
	currentPath := ""
	for _, kv := range o.opts.BaseEnv {
		if name, value, ok := strings.Cut(kv, "="); ok && name == EnvPath {
			currentPath = value
		}
	}
	return NewEnvironment(prefix, o.homeDir(), currentPath, o.opts.FallbackBinDir)
}

func (o *Orchestrator) homeDir() string {
	if o.opts.HomeDir != "" {
		return o.opts.HomeDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("Cannot determine home directory", "error", err)
		return ""
	}
	return home
}

// ReadVersion returns the whitespace-trimmed contents of <prefix>/version.
func (o *Orchestrator) ReadVersion(prefix string) (string, error) {
	path := filepath.Join(prefix, VersionFileName)
	data, err := afero.ReadFile(o.fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read version marker %s: %w", path, err)
	}
	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", fmt.Errorf("version marker %s is empty", path)
	}
	return version, nil
}

// ComposeCommands returns the build and up invocations for the service.
// Both carry the same project name so re-installs reuse one compose project.
func (o *Orchestrator) ComposeCommands(prefix, version string, env []string) (build, up execx.Command) {
	dockerDir := filepath.Join(prefix, DockerDirName)
	base := []string{
		"compose",
		"-p", o.opts.Project,
		"--project-directory", prefix,
		"-f", filepath.Join(dockerDir, ComposeFileName),
	}

	build = execx.Command{
		Name:   o.opts.Binary,
		Args:   append(append([]string{}, base...), "build", "--no-cache", "--build-arg", o.opts.VersionBuildArg+"="+version, o.opts.Service),
		Dir:    dockerDir,
		Env:    env,
		Stream: true,
	}
	up = execx.Command{
		Name:   o.opts.Binary,
		Args:   append(append([]string{}, base...), "up", "-d", o.opts.Service),
		Dir:    dockerDir,
		Env:    env,
		Stream: true,
	}
	return build, up
}

// PostInstall provisions the environment overlay and builds then starts the
// service. A failed build means up is never attempted. Nothing is rolled back.
func (o *Orchestrator) PostInstall(ctx context.Context, prefix string) error {
	absPrefix, err := filepath.Abs(prefix)
	if err != nil {
		return denerrors.NewFileSystemError("Failed to resolve the install prefix", err.Error(), "", err)
	}

	env := o.Environment(absPrefix)

	version, err := o.ReadVersion(absPrefix)
	if err != nil {
		return denerrors.NewInstallError(
			"Failed to determine the installed Den version",
			err.Error(),
			"Reinstall Den so that the release's version file is present",
			err,
		)
	}

	composeFile := filepath.Join(absPrefix, DockerDirName, ComposeFileName)
	if _, err := o.fs.Stat(composeFile); err != nil {
		return denerrors.NewBootstrapError(
			"Failed to bootstrap the "+o.opts.Service+" service",
			"compose file not found at "+composeFile,
			"Reinstall Den; the release should ship docker/"+ComposeFileName,
			fmt.Errorf("compose file missing: %w", err),
		)
	}

	build, up := o.ComposeCommands(absPrefix, version, env.Apply(o.opts.BaseEnv))
	slog.Info("Bootstrapping Den service", "prefix", absPrefix, "version", version, "project", o.opts.Project, "service", o.opts.Service)

	if o.opts.DryRun {
		fmt.Fprintf(o.opts.Out, "DRY RUN: Would run in %s: %s\n", build.Dir, build.String())
		fmt.Fprintf(o.opts.Out, "DRY RUN: Would run in %s: %s\n", up.Dir, up.String())
		return nil
	}

	for _, step := range []struct {
		name string
		cmd  execx.Command
	}{
		{"build", build},
		{"up", up},
	} {
		res := o.runner.Run(ctx, step.cmd)
		if !res.OK() {
			cause := res.Err
			if cause == nil {
				cause = fmt.Errorf("exit status %d", res.Code)
			}
			slog.Error("docker compose failed", "step", step.name, "code", res.Code, "error", cause)
			return denerrors.NewBootstrapError(
				fmt.Sprintf("Failed to %s the %s service", step.name, o.opts.Service),
				fmt.Sprintf("docker compose %s exited with status %d", step.name, res.Code),
				"Review the docker compose output above, then re-run the installer or 'den svc up'",
				fmt.Errorf("docker compose %s failed: %w", step.name, cause),
			)
		}
		slog.Info("docker compose step completed", "step", step.name, "service", o.opts.Service)
	}

	o.verify(ctx)
	return nil
}

func (o *Orchestrator) verify(ctx context.Context) {
	if o.opts.Verifier == nil {
		return
	}
	status, err := o.opts.Verifier.ServiceStatus(ctx, o.opts.Project, o.opts.Service)
	if err != nil {
		slog.Warn("Could not verify service status", "service", o.opts.Service, "error", err)
		return
	}
	if !status.Up() {
		slog.Warn("Service has no running container after bring-up", "project", status.Project, "service", status.Service, "containers", status.Containers)
	}
}
