package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Keyring errors indicate a requested record cannot be resolved.
var (
	// ErrKeyNotFound indicates the public key is absent from the keyring.
	ErrKeyNotFound = errors.New("key not found")

	// ErrAmbiguousSource indicates an import source holds several keys and none was selected.
	ErrAmbiguousSource = errors.New("source contains more than one key, a public key must be provided")

	// ErrKeyConflict indicates a different record with the same public key is already stored.
	ErrKeyConflict = errors.New("a different key with the same public key already exists")
)

// Record errors indicate a key record is structurally or cryptographically invalid.
var (
	// ErrMalformedKey indicates a key record does not follow the three-line format.
	ErrMalformedKey = errors.New("malformed key record")

	// ErrKeyMismatch indicates the private key does not derive the recorded public key.
	ErrKeyMismatch = errors.New("private key does not match public key")
)

// File errors indicate issues with file access.
var (
	// ErrFileExists indicates a write was refused because the target exists.
	ErrFileExists = errors.New("file already exists")

	// ErrFileLocked indicates the file stayed locked by another holder after all retries.
	ErrFileLocked = errors.New("file is locked by another process")

	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")
)

// Config errors indicate issues with a SOPS configuration document.
var (
	// ErrInvalidConfig indicates the configuration is malformed.
	ErrInvalidConfig = errors.New("sops configuration is invalid")

	// ErrNoMatchingRule indicates no creation rule applies to a path.
	ErrNoMatchingRule = errors.New("no creation rule matches path")

	// ErrInvalidSettings indicates the agekeeper settings file is malformed.
	ErrInvalidSettings = errors.New("settings are invalid")
)

// ErrExternalTool indicates an external executable exited with a non-zero status.
var ErrExternalTool = errors.New("external tool failed")

// ToolError describes a failed run of an external executable. It matches
// ErrExternalTool with errors.Is.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	// Output is the captured stdout and stderr, verbatim.
	Output string
}

func (e *ToolError) Error() string {
	command := strings.TrimSpace(e.Tool + " " + strings.Join(e.Args, " "))
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("%s exited with status %d", command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", command, e.ExitCode, output)
}

// Is reports whether target is ErrExternalTool.
func (e *ToolError) Is(target error) bool {
	return target == ErrExternalTool
}
