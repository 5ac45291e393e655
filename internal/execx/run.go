// Package execx runs external tools with a guaranteed wait on every started
// child process.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// DebugEnv echoes every command to stderr when set to "1".
const DebugEnv = "DEN_INSTALLER_DEBUG"

// CodeSpawnFailed is reported when the process could not be started at all.
const CodeSpawnFailed = 127

// ErrNotStarted wraps Result.Err when the process never ran, as opposed to a
// child that exited 127 on its own.
var ErrNotStarted = errors.New("process not started")

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is the complete child environment; nil inherits the current process env.
	Env []string
	// Stream mirrors the child's stdout and stderr to the host terminal.
	Stream bool
}

// String renders the command line for logs and dry runs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

type Result struct {
	Code   int
	Stdout string
	Err    error
}

// Started reports whether a child process ran at all.
func (r Result) Started() bool {
	return !errors.Is(r.Err, ErrNotStarted)
}

// OK reports a zero exit status.
func (r Result) OK() bool {
	return r.Code == 0 && r.Err == nil
}

// Runner executes commands synchronously.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// OSRunner runs commands as real child processes.
type OSRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewOSRunner returns a runner that streams to the process stdout/stderr.
func NewOSRunner() *OSRunner {
	return &OSRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *OSRunner) Run(ctx context.Context, c Command) Result {
	if os.Getenv(DebugEnv) == "1" {
		fmt.Fprintf(os.Stderr, "+ %s\n", c.String())
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env

	var buf bytes.Buffer
	if c.Stream {
		cmd.Stdout = io.MultiWriter(r.stdout(), &buf)
		cmd.Stderr = r.stderr()
	} else {
		cmd.Stdout = &buf
	}

	if err := cmd.Start(); err != nil {
		return Result{Code: CodeSpawnFailed, Err: fmt.Errorf("failed to start %s: %w: %w", c.Name, ErrNotStarted, err)}
	}

	// Wait releases the process handle whether the child succeeded, failed or
	// was killed by ctx.
	err := cmd.Wait()
	return Result{Code: exitCode(err), Stdout: buf.String(), Err: err}
}

func (r *OSRunner) stdout() io.Writer {
	if r.Stdout == nil {
		return io.Discard
	}
	return r.Stdout
}

func (r *OSRunner) stderr() io.Writer {
	if r.Stderr == nil {
		return io.Discard
	}
	return r.Stderr
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
