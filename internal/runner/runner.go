// Package runner starts the external executables agekeeper delegates to
// (age-keygen and sops).
//
// A non-zero exit status is reported in Result, not as an error. Errors are
// reserved for runs that never produced a status: a missing executable, a
// cancelled context, or an I/O failure.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Command describes one invocation.
type Command struct {
	Name string
	Args []string
	// Env holds extra KEY=VALUE pairs appended to the current environment.
	Env []string
}

// Result is the outcome of a captured run.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns stdout followed by stderr, the text a failed tool is
// diagnosed from.
func (r Result) Output() string {
	return r.Stdout + r.Stderr
}

// Runner starts external processes.
type Runner interface {
	// Run executes the command with stdout and stderr captured.
	Run(ctx context.Context, cmd Command) (Result, error)

	// Attach executes the command connected to the current terminal and
	// returns its exit status.
	Attach(ctx context.Context, cmd Command) (int, error)
}

// Exec runs commands with os/exec.
type Exec struct{}

func (Exec) Run(ctx context.Context, cmd Command) (Result, error) {
	process := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	process.Env = environ(cmd.Env)

	var stdout, stderr bytes.Buffer
	process.Stdout = &stdout
	process.Stderr = &stderr

	exitCode, err := wait(ctx, cmd, process.Run())
	if err != nil {
		return Result{}, err
	}
	return Result{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

func (Exec) Attach(ctx context.Context, cmd Command) (int, error) {
	process := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	process.Env = environ(cmd.Env)
	process.Stdin = os.Stdin
	process.Stdout = os.Stdout
	process.Stderr = os.Stderr

	return wait(ctx, cmd, process.Run())
}

func wait(ctx context.Context, cmd Command, runErr error) (int, error) {
	if runErr == nil {
		return 0, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, fmt.Errorf("running %s: %w", cmd.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("running %s: %w", cmd.Name, runErr)
}

func environ(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}
	return append(os.Environ(), extra...)
}
