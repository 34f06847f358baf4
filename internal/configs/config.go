package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
)

// Key generator kinds.
const (
	GeneratorAgeKeygen = "age-keygen"
	GeneratorNative    = "native"
)

// Settings is the content of the agekeeper settings file.
type Settings struct {
	KeyFile         string `toml:"key_file"`
	SOPSBinary      string `toml:"sops_binary"`
	AgeKeygenBinary string `toml:"age_keygen_binary"`
	KeyGenerator    string `toml:"key_generator"`
	AuditLog        string `toml:"audit_log"`
	Retry           Retry  `toml:"retry"`
}

// Retry is the lock contention policy.
type Retry struct {
	Attempts   int `toml:"attempts"`
	IntervalMS int `toml:"interval_ms"`
}

// Interval returns the delay between attempts.
func (r Retry) Interval() time.Duration {
	return time.Duration(r.IntervalMS) * time.Millisecond
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() *Settings {
	auditLog, err := DefaultAuditLogPath()
	if err != nil {
		auditLog = ""
	}
	return &Settings{
		SOPSBinary:      "sops",
		AgeKeygenBinary: "age-keygen",
		KeyGenerator:    GeneratorAgeKeygen,
		AuditLog:        auditLog,
		Retry: Retry{
			Attempts:   3,
			IntervalMS: 100,
		},
	}
}

// Validate checks the settings for values no component can use.
func (s *Settings) Validate() error {
	switch s.KeyGenerator {
	case "", GeneratorAgeKeygen, GeneratorNative:
	default:
		return fmt.Errorf("%w: key_generator must be %q or %q, got %q",
			kerrors.ErrInvalidSettings, GeneratorAgeKeygen, GeneratorNative, s.KeyGenerator)
	}
	if s.Retry.Attempts < 0 {
		return fmt.Errorf("%w: retry.attempts must not be negative", kerrors.ErrInvalidSettings)
	}
	if s.Retry.IntervalMS < 0 {
		return fmt.Errorf("%w: retry.interval_ms must not be negative", kerrors.ErrInvalidSettings)
	}
	return nil
}

// LoadSettings reads the settings file at path over the defaults. A
// missing file yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}

	unknown, err := LoadTOML(path, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings from %s: %w: %v", path, kerrors.ErrInvalidSettings, err)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("failed to load settings from %s: %w: unknown keys %s",
			path, kerrors.ErrInvalidSettings, strings.Join(unknown, ", "))
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
	}

	return settings, nil
}

// SaveSettings writes settings to path. An existing file is left untouched
// and ErrFileExists returned unless overwrite is set.
func SaveSettings(path string, settings *Settings, overwrite bool) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	save := SaveTOML
	if !overwrite {
		save = CreateTOML
	}
	if err := save(path, settings); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", path, kerrors.ErrFileExists)
		}
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
