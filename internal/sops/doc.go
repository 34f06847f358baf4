// Package sops drives the sops command line tool.
//
// The client never touches file contents itself. It builds argument
// vectors for sops encrypt, decrypt and edit, runs them through a
// runner.Runner, and turns non-zero exits into *errors.ToolError values
// carrying the tool's output verbatim.
//
// Decrypt is retried a bounded number of times when sops reports that the
// file is held by another process. All other failures surface at once.
package sops
