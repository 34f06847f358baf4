package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/agekeeper/internal/audit"
	"github.com/PolarWolf314/agekeeper/internal/configs"
	"github.com/PolarWolf314/agekeeper/internal/filelock"
	"github.com/PolarWolf314/agekeeper/internal/keygen"
	logger "github.com/PolarWolf314/agekeeper/internal/logging"
	"github.com/PolarWolf314/agekeeper/internal/runner"
	"github.com/PolarWolf314/agekeeper/internal/secretmanager"
	"github.com/PolarWolf314/agekeeper/internal/sops"
)

// OpenOptions configures Open.
type OpenOptions struct {
	// KeyFile overrides the keyring location from settings and environment.
	KeyFile string

	// SettingsPath overrides the settings file location.
	SettingsPath string

	// Runner executes sops and age-keygen. Defaults to os/exec.
	Runner runner.Runner

	Logger logger.Logger
}

// Session is the resolved environment shared by all workflows of one
// command invocation.
type Session struct {
	Settings     *configs.Settings
	SettingsPath string
	Manager      *secretmanager.Manager
	Logger       logger.Logger
}

// Open loads settings and builds the secret manager.
//
// The key file is the first of: opts.KeyFile, key_file from settings,
// SOPS_AGE_KEY_FILE, and the per-user default.
func Open(ctx context.Context, opts OpenOptions) (*Session, error) {
	settingsPath := opts.SettingsPath
	if settingsPath == "" {
		var err error
		settingsPath, err = configs.SettingsPath()
		if err != nil {
			return nil, err
		}
	}
	opts.Logger.Debugf("Loading settings from %s", settingsPath)

	settings, err := configs.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}

	run := opts.Runner
	if run == nil {
		run = runner.Exec{}
	}

	generator, err := keygen.New(settings.KeyGenerator, settings.AgeKeygenBinary, run)
	if err != nil {
		return nil, fmt.Errorf("loading settings from %s: %w", settingsPath, err)
	}

	keyFile := opts.KeyFile
	if keyFile == "" {
		keyFile = settings.KeyFile
	}

	auditLog, err := configs.ExpandHome(settings.AuditLog)
	if err != nil {
		return nil, err
	}

	manager, err := secretmanager.New(secretmanager.Options{
		KeyFilePath: keyFile,
		Generator:   generator,
		SOPS: sops.Client{
			Binary:   settings.SOPSBinary,
			Runner:   run,
			Attempts: settings.Retry.Attempts,
			Delay:    settings.Retry.Interval(),
		},
		Arbiter: filelock.Arbiter{
			Attempts: settings.Retry.Attempts,
			Interval: settings.Retry.Interval(),
		},
		Audit:  audit.Logger{Path: auditLog},
		Logger: opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		Settings:     settings,
		SettingsPath: settingsPath,
		Manager:      manager,
		Logger:       opts.Logger,
	}, nil
}
