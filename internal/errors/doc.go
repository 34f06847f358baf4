// Package errors provides typed error values for agekeeper.
//
// Sentinel errors let callers branch on a condition with errors.Is()
// instead of matching message text.
//
// # Error Categories
//
//   - Keyring errors: ErrKeyNotFound, ErrAmbiguousSource, ErrKeyConflict
//   - Record errors: ErrMalformedKey, ErrKeyMismatch
//   - File errors: ErrFileExists, ErrFileLocked, ErrNoFilesFound
//   - Config errors: ErrInvalidConfig, ErrNoMatchingRule, ErrInvalidSettings
//   - Collaborator errors: ErrExternalTool, carried by *ToolError
//
// # Usage
//
// Wrap sentinels with the context a caller needs to diagnose the failure
// without re-running the command:
//
//	return agekey.Key{}, fmt.Errorf("public key %s in %s: %w", publicKey, path, errors.ErrKeyNotFound)
//
// Handle them in the CLI layer:
//
//	key, err := manager.GetKey(ctx, publicKey)
//	if errors.Is(err, kerrors.ErrKeyNotFound) {
//	    // Show user-friendly message
//	}
//
// A failed external tool run returns a *ToolError, which matches
// ErrExternalTool and exposes the captured output:
//
//	var toolErr *kerrors.ToolError
//	if errors.As(err, &toolErr) {
//	    fmt.Println(toolErr.Output)
//	}
package errors
