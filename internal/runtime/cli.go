package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"deninstall/internal/execx"
	"deninstall/pkg/runtime"
)

// CLIProber queries the runtime through its command line client.
type CLIProber struct {
	runner execx.Runner
	binary string
}

func NewCLIProber(runner execx.Runner, binary string) *CLIProber {
	return &CLIProber{runner: runner, binary: binary}
}

// Running treats a zero exit of `docker system info` as a live daemon. A
// binary that cannot be started is reported as runtime.ErrUnavailable.
func (p *CLIProber) Running(ctx context.Context) (bool, error) {
	res := p.runner.Run(ctx, execx.Command{Name: p.binary, Args: []string{"system", "info"}})
	if !res.Started() {
		return false, fmt.Errorf("%w: %s: %v", runtime.ErrUnavailable, p.binary, res.Err)
	}
	if !res.OK() {
		slog.Info("Docker daemon did not answer system info", "binary", p.binary, "code", res.Code)
		return false, nil
	}
	return true, nil
}

func (p *CLIProber) ServerVersion(ctx context.Context) (string, error) {
	return p.query(ctx, "version", "--format", "{{.Server.Version}}")
}

func (p *CLIProber) ComposeVersion(ctx context.Context) (string, error) {
	return p.query(ctx, "compose", "version", "--short")
}

func (p *CLIProber) query(ctx context.Context, args ...string) (string, error) {
	cmd := execx.Command{Name: p.binary, Args: args}
	res := p.runner.Run(ctx, cmd)
	if !res.OK() {
		if res.Err != nil {
			return "", fmt.Errorf("%s exited with status %d: %w", cmd.String(), res.Code, res.Err)
		}
		return "", fmt.Errorf("%s exited with status %d", cmd.String(), res.Code)
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return "", fmt.Errorf("%s produced no output", cmd.String())
	}
	return out, nil
}
