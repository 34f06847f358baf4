// Package utils provides shared utility functions for agekeeper.
//
// This package contains general-purpose helpers used across multiple packages.
// Functions are organized into logical groups:
//
// # File Utilities
//
// Functions for turning user input into file lists:
//   - ResolveFiles: expands paths, directories and ** globs
//   - FormatPaths: formats file paths for human-readable output
//
// # System Utilities
//
// Functions for interacting with the operating system:
//   - GetUsername: returns the current system username
//
// # I/O Utilities
//
// Functions for reading from stdin and other I/O operations:
//   - ReadStdin: reads all data from standard input
//
// # Terminal Utilities
//
// Functions for terminal detection:
//   - IsTerminal: checks if stdin is a terminal
//   - IsOutputTerminal: checks if stdout is a terminal
package utils
