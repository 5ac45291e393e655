package app

import (
	"context"
	"fmt"

	"deninstall/internal/installer"
	"deninstall/internal/ui"
)

// BootstrapStage builds and starts the dashboard service.
type BootstrapStage struct {
	orchestrator *installer.Orchestrator
	console      *ui.Console
	prefix       string
	// payloadVersion is the release being installed; empty when bootstrapping
	// whatever the prefix already holds.
	payloadVersion string
	isDryRun       bool
}

func NewBootstrapStage(o *installer.Orchestrator, console *ui.Console, prefix, payloadVersion string, isDryRun bool) *BootstrapStage {
	return &BootstrapStage{
		orchestrator:   o,
		console:        console,
		prefix:         prefix,
		payloadVersion: payloadVersion,
		isDryRun:       isDryRun,
	}
}

func (s *BootstrapStage) Name() string {
	return string(StageBootstrap)
}

func (s *BootstrapStage) Execute(ctx context.Context, _ *Receipt) error {
	// A dry run never copied the payload, so the prefix may hold nothing or
	// an older release. Preview with the version a real run would install.
	if s.isDryRun && s.payloadVersion != "" {
		build, up := s.orchestrator.ComposeCommands(s.prefix, s.payloadVersion, nil)
		s.console.PrintInfo("DRY RUN: Would run " + build.String())
		s.console.PrintInfo("DRY RUN: Would run " + up.String())
		return nil
	}

	if err := s.orchestrator.PostInstall(ctx, s.prefix); err != nil {
		return err
	}

	if s.isDryRun {
		s.console.PrintSuccess("Bootstrap simulation completed successfully")
	} else {
		s.console.PrintSuccess(fmt.Sprintf("Dashboard service started from %s", s.prefix))
	}
	return nil
}
