// Package app runs the installer workflow: the runtime requirement gate
// first, then the install and bootstrap stages, with progress kept in an
// install receipt.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"deninstall/internal/config"
	denerrors "deninstall/internal/errors"
	"deninstall/internal/gate"
	"deninstall/internal/installer"
)

type Options struct {
	// PayloadRoot is an unpacked release. Ignored when Head is set.
	PayloadRoot string
	Prefix      string
	// Head fetches the payload from the configured source branch.
	Head bool
	// Branch overrides the configured source branch.
	Branch        string
	DryRun        bool
	SkipBootstrap bool
}

type App struct {
	cfg       *config.Config
	deps      Dependencies
	threshold gate.Threshold
}

func New(cfg *config.Config, deps Dependencies) (*App, error) {
	threshold, err := cfg.Threshold()
	if err != nil {
		return nil, denerrors.NewConfigError(
			"Invalid runtime version thresholds",
			err.Error(),
			"Set runtime.min_version and runtime.min_compose_version to versions like 20.10.16",
			err,
		)
	}
	return &App{cfg: cfg, deps: deps, threshold: threshold}, nil
}

func (a *App) gateStage() *GateStage {
	g := gate.New(a.deps.Fs, a.deps.Platform, a.deps.Prober, a.threshold, gate.RunningPolicy(a.cfg.Runtime.RunningPolicy))
	return NewGateStage(g, a.deps.Console)
}

func (a *App) orchestrator(isDryRun bool) *installer.Orchestrator {
	fallback := a.cfg.Install.FallbackBinDir
	if fallback == "" {
		fallback = a.deps.Platform.FallbackBinDir()
	}
	return installer.New(a.deps.Fs, a.deps.Runner, installer.Options{
		Binary:          a.deps.Platform.RuntimeBinaryPath(),
		Project:         a.cfg.Compose.Project,
		Service:         a.cfg.Compose.Service,
		VersionBuildArg: a.cfg.Compose.VersionBuildArg,
		FallbackBinDir:  fallback,
		HomeDir:         a.deps.HomeDir,
		BaseEnv:         a.deps.BaseEnv,
		DryRun:          isDryRun,
		Out:             a.deps.Out,
		Verifier:        a.deps.Verifier,
	})
}

// Check evaluates the gate only. An unsatisfied decision is also returned as
// a PreconditionUnmet error.
func (a *App) Check(ctx context.Context) (gate.Decision, error) {
	stage := a.gateStage()
	err := stage.Execute(ctx, nil)
	return stage.Decision(), err
}

// Run installs Den into opts.Prefix. Nothing is written until the gate passes.
func (a *App) Run(ctx context.Context, opts Options) error {
	if err := validateOptions(opts); err != nil {
		return err
	}
	prefix, err := filepath.Abs(opts.Prefix)
	if err != nil {
		return denerrors.NewFileSystemError("Failed to resolve the install prefix", err.Error(), "", err)
	}

	slog.Info("Starting Den install workflow", "prefix", prefix, "head", opts.Head, "dryRun", opts.DryRun)
	console := a.deps.Console
	if opts.DryRun {
		console.PrintWarning("DRY RUN MODE - No actual changes will be made")
	}

	console.PrintStage("Stage 1: Checking runtime requirements")
	if err := a.gateStage().Execute(ctx, nil); err != nil {
		return err
	}

	payloadRoot, commit, cleanup, err := a.resolvePayload(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	version, err := a.payloadVersion(payloadRoot)
	if err != nil {
		return err
	}

	receipt, err := a.openReceipt(prefix, version, commit)
	if err != nil {
		return err
	}
	receipt.LastSuccessfulStage = StageGate
	if err := a.persist(prefix, receipt, opts.DryRun); err != nil {
		return err
	}

	orchestrator := a.orchestrator(opts.DryRun)
	stages := []struct {
		title string
		stage Stage
		skip  bool
	}{
		{"Stage 2: Installing release payload", NewInstallStage(orchestrator, console, payloadRoot, prefix, opts.DryRun), false},
		{"Stage 3: Bootstrapping the dashboard service", NewBootstrapStage(orchestrator, console, prefix, version, opts.DryRun), opts.SkipBootstrap},
	}

	for _, s := range stages {
		name := ExecutionStage(s.stage.Name())
		if s.skip {
			slog.Info("Stage skipped by request", "stage", name)
			continue
		}

		console.PrintStage(s.title)
		if err := s.stage.Execute(ctx, receipt); err != nil {
			return err
		}

		receipt.LastSuccessfulStage = name
		if err := a.persist(prefix, receipt, opts.DryRun); err != nil {
			return err
		}
	}

	if !opts.SkipBootstrap {
		receipt.LastSuccessfulStage = StageCompleted
		if err := a.persist(prefix, receipt, opts.DryRun); err != nil {
			return err
		}
	}

	if opts.DryRun {
		console.PrintSuccess("DRY RUN COMPLETED - All stages simulated successfully")
	} else {
		console.PrintSuccess(fmt.Sprintf("Den %s is installed in %s", version, prefix))
	}
	slog.Info("Den install workflow completed", "runId", receipt.RunID, "version", version, "dryRun", opts.DryRun)
	return nil
}

// PostInstall re-runs the bootstrap for an existing prefix, behind the gate.
func (a *App) PostInstall(ctx context.Context, prefix string, isDryRun bool) error {
	absPrefix, err := filepath.Abs(prefix)
	if err != nil {
		return denerrors.NewFileSystemError("Failed to resolve the install prefix", err.Error(), "", err)
	}

	a.deps.Console.PrintStage("Checking runtime requirements")
	if err := a.gateStage().Execute(ctx, nil); err != nil {
		return err
	}

	receipt, err := LoadReceipt(a.deps.Fs, absPrefix)
	if err != nil {
		slog.Warn("Ignoring unreadable install receipt", "prefix", absPrefix, "error", err)
		receipt = nil
	}

	a.deps.Console.PrintStage("Bootstrapping the dashboard service")
	stage := NewBootstrapStage(a.orchestrator(isDryRun), a.deps.Console, absPrefix, "", isDryRun)
	if err := stage.Execute(ctx, receipt); err != nil {
		return err
	}

	if receipt != nil {
		receipt.LastSuccessfulStage = StageCompleted
		return a.persist(absPrefix, receipt, isDryRun)
	}
	return nil
}

// Environment returns the overlay handed to docker compose for prefix.
func (a *App) Environment(prefix string) (installer.Environment, error) {
	absPrefix, err := filepath.Abs(prefix)
	if err != nil {
		return installer.Environment{}, denerrors.NewFileSystemError("Failed to resolve the install prefix", err.Error(), "", err)
	}
	return a.orchestrator(false).Environment(absPrefix), nil
}

func validateOptions(opts Options) error {
	if opts.Prefix == "" {
		return denerrors.NewConfigError(
			"Missing install prefix",
			"no --prefix was given",
			"Pass --prefix with the directory Den should be installed into",
			nil,
		)
	}
	if opts.Head && opts.PayloadRoot != "" {
		return denerrors.NewConfigError(
			"Conflicting payload options",
			"both --payload and --head were given",
			"Use --payload for a release or --head for the development branch, not both",
			nil,
		)
	}
	if !opts.Head && opts.PayloadRoot == "" {
		return denerrors.NewConfigError(
			"Missing release payload",
			"neither --payload nor --head was given",
			"Pass --payload with an unpacked Den release, or --head to fetch the development branch",
			nil,
		)
	}
	return nil
}

// resolvePayload returns the payload root, the fetched commit for head
// installs, and a cleanup for any temporary checkout.
func (a *App) resolvePayload(ctx context.Context, opts Options) (string, string, func(), error) {
	noop := func() {}
	if !opts.Head {
		return opts.PayloadRoot, "", noop, nil
	}

	branch := opts.Branch
	if branch == "" {
		branch = a.cfg.Source.Branch
	}

	tmp, err := afero.TempDir(a.deps.Fs, "", "den-head-")
	if err != nil {
		return "", "", noop, denerrors.NewFileSystemError(
			"Failed to prepare a checkout directory",
			err.Error(),
			"Check that the temporary directory is writable",
			err,
		)
	}
	cleanup := func() {
		if err := a.deps.Fs.RemoveAll(tmp); err != nil {
			slog.Warn("Failed to remove temporary checkout", "path", tmp, "error", err)
		}
	}

	dest := filepath.Join(tmp, "den")
	commit, err := a.deps.Fetcher.FetchHead(ctx, a.cfg.Source.URL, branch, dest)
	if err != nil {
		cleanup()
		return "", "", noop, err
	}
	return dest, commit, cleanup, nil
}

func (a *App) payloadVersion(payloadRoot string) (string, error) {
	data, err := afero.ReadFile(a.deps.Fs, filepath.Join(payloadRoot, installer.VersionFileName))
	if err == nil && strings.TrimSpace(string(data)) != "" {
		return strings.TrimSpace(string(data)), nil
	}
	if err == nil {
		err = fmt.Errorf("version file in %s is empty", payloadRoot)
	}
	return "", denerrors.NewInstallError(
		"Failed to install the Den release payload",
		"the payload has no readable version file",
		"Pass the root of an unpacked Den release, which contains a version file",
		err,
	)
}

// openReceipt loads the prefix's receipt. The run id carries over only when
// the payload is the release already recorded; the copy runs either way.
func (a *App) openReceipt(prefix, version, commit string) (*Receipt, error) {
	receipt, err := LoadReceipt(a.deps.Fs, prefix)
	if err != nil {
		slog.Warn("Ignoring unreadable install receipt", "prefix", prefix, "error", err)
		receipt = nil
	}

	if receipt.sameRelease(version, commit) {
		slog.Info("Reinstalling recorded release", "runId", receipt.RunID, "version", version, "lastStage", receipt.LastSuccessfulStage)
		return receipt, nil
	}
	if receipt != nil {
		slog.Info("Payload differs from installed release", "installed", receipt.Version, "installedCommit", receipt.Commit, "payload", version, "commit", commit)
	}

	runID := uuid.New().String()
	slog.Info("Starting new Den install", "runId", runID, "version", version, "commit", commit)
	r := newReceipt(runID, version)
	r.Commit = commit
	return r, nil
}

func (a *App) persist(prefix string, receipt *Receipt, isDryRun bool) error {
	if isDryRun {
		return nil
	}
	if err := saveReceipt(a.deps.Fs, prefix, receipt); err != nil {
		return denerrors.NewFileSystemError(
			"Failed to record install progress",
			err.Error(),
			"Check permissions on "+prefix,
			err,
		)
	}
	return nil
}
