// Package audit records key lifecycle events for agekeeper.
//
// Every change to a keyring (create, import, delete) and every sops
// operation run through agekeeper is appended to a user-level audit log.
// Private keys are never written; entries name keys by public key only.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line), by
// default at:
//
//	<UserConfigDir>/agekeeper/audit.jsonl
//
// Each entry contains:
//   - A random entry ID (UUID v4)
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Operating system user
//   - Operation name
//   - Operation-specific details (public key, key file, files)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error. A Logger with an empty
// Path records nothing.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log and Query.Apply to filter it.
// Malformed entries are silently skipped to handle partial writes.
package audit
