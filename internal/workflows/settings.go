package workflows

import (
	"github.com/PolarWolf314/agekeeper/internal/configs"
)

// SettingsInitResult contains the written settings.
type SettingsInitResult struct {
	Path     string
	Settings *configs.Settings
}

// SettingsInit writes the default settings to path, or to the settings
// location when path is empty.
//
// Returns ErrFileExists if the file exists and force is not set.
func SettingsInit(path string, force bool) (*SettingsInitResult, error) {
	if path == "" {
		var err error
		path, err = configs.SettingsPath()
		if err != nil {
			return nil, err
		}
	}

	settings := configs.DefaultSettings()
	if err := configs.SaveSettings(path, settings, force); err != nil {
		return nil, err
	}
	return &SettingsInitResult{Path: path, Settings: settings}, nil
}
