package app

import (
	"context"
	"fmt"
	"log/slog"

	denerrors "deninstall/internal/errors"
	"deninstall/internal/gate"
	"deninstall/internal/ui"
)

// GateStage evaluates the runtime requirement gate. It touches nothing on
// disk, so it runs before any receipt exists.
type GateStage struct {
	gate     *gate.Gate
	console  *ui.Console
	decision gate.Decision
}

func NewGateStage(g *gate.Gate, console *ui.Console) *GateStage {
	return &GateStage{gate: g, console: console}
}

func (s *GateStage) Name() string {
	return string(StageGate)
}

// Decision returns the result of the last Execute.
func (s *GateStage) Decision() gate.Decision {
	return s.decision
}

func (s *GateStage) Execute(ctx context.Context, _ *Receipt) error {
	s.decision = s.gate.Evaluate(ctx)

	if !s.decision.Satisfied {
		slog.Error("Runtime requirements not met", "step", s.decision.Step)
		return denerrors.NewPreconditionError(
			"Den cannot be installed on this host",
			fmt.Sprintf("the %s check did not pass", s.decision.Step),
			s.decision.Reason,
			fmt.Errorf("runtime requirement gate failed at step %s", s.decision.Step),
		)
	}

	if s.decision.Deferred {
		s.console.PrintWarning("Docker is installed but not running. Start Docker before using Den; version checks were skipped.")
		return nil
	}

	s.console.PrintSuccess(fmt.Sprintf("Docker %s and Docker Compose %s meet the requirements",
		s.decision.Probe.ServerVersion, s.decision.Probe.ComposeVersion))
	return nil
}
