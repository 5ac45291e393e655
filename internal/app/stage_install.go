package app

import (
	"context"
	"fmt"

	"deninstall/internal/installer"
	"deninstall/internal/ui"
)

// InstallStage copies the release payload into the prefix.
type InstallStage struct {
	orchestrator *installer.Orchestrator
	console      *ui.Console
	payloadRoot  string
	prefix       string
	isDryRun     bool
}

func NewInstallStage(o *installer.Orchestrator, console *ui.Console, payloadRoot, prefix string, isDryRun bool) *InstallStage {
	return &InstallStage{
		orchestrator: o,
		console:      console,
		payloadRoot:  payloadRoot,
		prefix:       prefix,
		isDryRun:     isDryRun,
	}
}

func (s *InstallStage) Name() string {
	return string(StageInstall)
}

func (s *InstallStage) Execute(ctx context.Context, receipt *Receipt) error {
	if err := s.orchestrator.Install(s.payloadRoot, s.prefix); err != nil {
		return err
	}

	if s.isDryRun {
		s.console.PrintSuccess("Install simulation completed successfully")
	} else {
		s.console.PrintSuccess(fmt.Sprintf("Den %s installed to %s", receipt.Version, s.prefix))
	}
	return nil
}
