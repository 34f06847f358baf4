// Package keyring stores age key records in a SOPS key file.
//
// The key file is plain text holding one three-line record per key (see
// package agekey). Every operation reads the whole file, parses it into a
// document of lines and records, changes the document in memory, and
// writes the whole file back in one write. The read-modify-write span is
// covered by an exclusive lock from package filelock, so operations on one
// file never interleave.
//
// Keyrings are human-scale, tens of records rather than millions, so the
// whole-file approach is cheap.
//
// # File Lifecycle
//
//   - The file and its parent directories are created on the first write
//   - Create and Import append a record, skipping identical ones
//   - Delete removes the record's three lines
//   - The file itself is never removed
package keyring
