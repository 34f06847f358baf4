package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// SettingsEnv overrides the settings file location.
	SettingsEnv = "AGEKEEPER_CONFIG"
	// KeyFileEnv is the variable sops reads the keyring location from.
	KeyFileEnv = "SOPS_AGE_KEY_FILE"
)

// SettingsPath returns the settings file location.
func SettingsPath() (string, error) {
	if path := os.Getenv(SettingsEnv); path != "" {
		return ExpandHome(path)
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(configDir, "agekeeper", "config.toml"), nil
}

// DefaultKeyFilePath returns the keyring location sops uses when no
// override is given: SOPS_AGE_KEY_FILE, else the per-user default.
func DefaultKeyFilePath() (string, error) {
	if path := os.Getenv(KeyFileEnv); path != "" {
		return ExpandHome(path)
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(configDir, "sops", "age", "keys.txt"), nil
}

// ResolveKeyFilePath returns override when set, else DefaultKeyFilePath.
func ResolveKeyFilePath(override string) (string, error) {
	if override != "" {
		return ExpandHome(override)
	}
	return DefaultKeyFilePath()
}

// DefaultAuditLogPath returns the default audit trail location.
func DefaultAuditLogPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(configDir, "agekeeper", "audit.jsonl"), nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}
