// Package shell runs external commands and prepares command text for safe
// logging. Commands are executed directly from an argv slice; there is no
// shell evaluation.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	shfields "mvdan.cc/sh/v3/shell"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, argv ...string) (string, error)
}

// CommandError reports a command that exited non-zero.
type CommandError struct {
	Argv     []string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", strings.Join(e.Argv, " "), e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes argv and returns trimmed combined stdout and stderr.
// A non-zero exit produces a *CommandError carrying the captured output.
func (ExecRunner) Run(ctx context.Context, argv ...string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("shell: empty argv")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &CommandError{
				Argv:     argv,
				ExitCode: exitErr.ExitCode(),
				Output:   trimmed,
			}
		}
		return "", err
	}
	return trimmed, nil
}

// Split breaks a command string into argv using POSIX word splitting rules.
// Variable expansion runs against an empty environment, so "$HOME" expands
// to nothing rather than leaking the caller's environment.
func Split(command string) ([]string, error) {
	argv, err := shfields.Fields(command, func(string) string { return "" })
	if err != nil {
		return nil, fmt.Errorf("cannot split command: %w", err)
	}
	return argv, nil
}
