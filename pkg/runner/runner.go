// Package runner executes external commands behind an interface so tmux and
// git wrappers can be tested with recorded argv.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"

	"jig/pkg/protocol"
)

// CommandRunner runs name with args and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// Run executes the command. A failure is returned as *protocol.CommandError
// carrying the exit code and stderr verbatim.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return out, &protocol.CommandError{Name: name, Args: args, ExitCode: code, Stderr: stderr.String(), Err: err}
	}
	return out, nil
}

// Interactive runs the command attached to the current terminal and blocks
// until it exits.
func Interactive(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return &protocol.CommandError{Name: name, Args: args, ExitCode: exitCode(err), Err: err}
	}
	return nil
}

// ExitCode extracts the exit code from a runner error, or -1.
func ExitCode(err error) int {
	var cmdErr *protocol.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Shell runs script with `sh -c` in dir and returns combined output.
func Shell(ctx context.Context, dir, script string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, &protocol.CommandError{
			Name: "sh", Args: []string{"-c", script}, ExitCode: exitCode(err), Stderr: string(out), Err: err,
		}
	}
	return out, nil
}
