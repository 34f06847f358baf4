package sops

import (
	"context"
	"errors"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	logger "github.com/PolarWolf314/agekeeper/internal/logging"
	"github.com/PolarWolf314/agekeeper/internal/runner"
)

const (
	DefaultBinary   = "sops"
	DefaultAttempts = 3
	DefaultDelay    = 100 * time.Millisecond

	// ExitFileUnchanged is returned by sops edit when the file was saved
	// without changes.
	ExitFileUnchanged = 200
)

// lockedMarkers are the messages sops relays when the OS refuses access
// because another process holds the file.
var lockedMarkers = []string{
	"process cannot access the file",
	"being used by another process",
}

// Client runs sops subcommands.
type Client struct {
	Binary string
	Runner runner.Runner
	// Attempts bounds how often Decrypt runs while the file is locked.
	Attempts int
	Delay    time.Duration
	// Env is appended to the environment of every sops process, for
	// example SOPS_AGE_KEY_FILE=<path>.
	Env    []string
	Logger logger.Logger
}

// Encrypt runs sops encrypt and returns the encrypted document. When
// publicKey is empty, sops picks recipients from its configuration.
func (c Client) Encrypt(ctx context.Context, filePath, publicKey string) (string, error) {
	result, err := c.run(ctx, encryptArgs(filePath, publicKey, false))
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

// EncryptInPlace runs sops encrypt --in-place, replacing the file with its
// encrypted form.
func (c Client) EncryptInPlace(ctx context.Context, filePath, publicKey string) error {
	_, err := c.run(ctx, encryptArgs(filePath, publicKey, true))
	return err
}

// Decrypt runs sops decrypt and returns the plaintext document.
func (c Client) Decrypt(ctx context.Context, filePath string) (string, error) {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	delay := c.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	args := []string{"decrypt", filePath}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var result runner.Result
		result, err = c.run(ctx, args)
		if err == nil {
			return result.Stdout, nil
		}
		if !isLocked(err) || attempt == attempts {
			break
		}

		c.Logger.Debugf("%s is locked by another process, retrying in %s (attempt %d/%d)", filePath, delay, attempt, attempts)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", err
}

// Edit opens the file in $EDITOR through sops edit, attached to the
// current terminal.
func (c Client) Edit(ctx context.Context, filePath string) error {
	cmd := c.command([]string{"edit", filePath})
	c.Logger.Debugf("Running %s %s", cmd.Name, strings.Join(cmd.Args, " "))

	exitCode, err := c.Runner.Attach(ctx, cmd)
	if err != nil {
		return err
	}
	if exitCode != 0 && exitCode != ExitFileUnchanged {
		return &kerrors.ToolError{Tool: cmd.Name, Args: cmd.Args, ExitCode: exitCode}
	}
	return nil
}

func (c Client) run(ctx context.Context, args []string) (runner.Result, error) {
	cmd := c.command(args)
	c.Logger.Debugf("Running %s %s", cmd.Name, strings.Join(cmd.Args, " "))

	result, err := c.Runner.Run(ctx, cmd)
	if err != nil {
		return runner.Result{}, err
	}
	if result.ExitCode != 0 {
		return result, &kerrors.ToolError{
			Tool:     cmd.Name,
			Args:     cmd.Args,
			ExitCode: result.ExitCode,
			Output:   result.Output(),
		}
	}
	return result, nil
}

func (c Client) command(args []string) runner.Command {
	binary := c.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	return runner.Command{Name: binary, Args: args, Env: c.Env}
}

func encryptArgs(filePath, publicKey string, inPlace bool) []string {
	args := []string{"encrypt"}
	if publicKey != "" {
		args = append(args, "--age", publicKey)
	}
	if inPlace {
		args = append(args, "--in-place")
	}
	return append(args, filePath)
}

func isLocked(err error) bool {
	var toolErr *kerrors.ToolError
	if !errors.As(err, &toolErr) {
		return false
	}
	output := strings.ToLower(toolErr.Output)
	for _, marker := range lockedMarkers {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}
