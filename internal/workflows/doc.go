// Package workflows provides high-level orchestration for agekeeper commands.
//
// Workflows coordinate settings, the secret manager and the audit log to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Opens a Session and calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Loading settings and resolving the key file
//   - Validating prerequisites
//   - Performing the core operation
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.GetKey(ctx, session, publicKey)
//	if errors.Is(err, kerrors.ErrKeyNotFound) {
//	    // Show user-friendly message
//	}
//
// # Context Usage
//
// Workflows that touch the key file or run sops accept a context.Context as
// their first parameter. It is checked before file access and during retry
// waits, and cancels running sops processes.
package workflows
