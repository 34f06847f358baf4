// Package configs loads agekeeper settings and resolves default paths.
//
// Settings are stored in TOML at $AGEKEEPER_CONFIG, or at
// <UserConfigDir>/agekeeper/config.toml when the variable is unset. A
// missing file means defaults; keys present in the file override them.
//
// # Settings
//
//   - key_file: keyring location, overriding the SOPS default
//   - sops_binary, age_keygen_binary: executables to run
//   - key_generator: "age-keygen" (default) or "native"
//   - audit_log: JSON lines audit trail, empty to disable
//   - [retry] attempts, interval_ms: lock contention policy
//
// # Key File Resolution
//
// The keyring path is the first of: an explicit override, the
// SOPS_AGE_KEY_FILE environment variable, and the default location SOPS
// itself uses, <UserConfigDir>/sops/age/keys.txt.
package configs
