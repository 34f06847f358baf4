package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/configs"
	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var settingsForce bool

func init() {
	settingsInitCmd.Flags().BoolVarP(&settingsForce, "force", "f", false, "overwrite an existing settings file")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsInitCmd)
}

// resetSettingsCommandState resets the settings commands' global state for testing.
func resetSettingsCommandState() {
	settingsForce = false
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage agekeeper settings",
	Long: `The settings file lives at $AGEKEEPER_CONFIG or agekeeper/config.toml in
your user config directory. A missing file means defaults.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settingsPath
		if path == "" {
			var err error
			if path, err = configs.SettingsPath(); err != nil {
				return err
			}
		}

		settings, err := configs.LoadSettings(path)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		fmt.Println(ui.Muted.Sprint(path))
		if err := toml.NewEncoder(os.Stdout).Encode(settings); err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		return nil
	},
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := workflows.SettingsInit(settingsPath, settingsForce)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}
		fmt.Println(ui.Done("Wrote " + ui.Path.Sprint(result.Path)))
		return nil
	},
}
