// Package agekey implements the textual age key record stored in SOPS
// key files.
//
// A record is exactly three lines, the layout written by age-keygen:
//
//	# created: 2024-05-01T10:00:00Z
//	# public key: age1...
//	AGE-SECRET-KEY-1...
//
// Key.String reproduces that layout byte for byte, so the same text is
// used for the key file and for comparisons. Parsing is strict: a missing
// prefix or an unreadable timestamp is ErrMalformedKey.
package agekey
