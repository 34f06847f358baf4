package cmd

import (
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the age keys sops decrypts with",
	Long: `Creates, imports, deletes and inspects the age keys in your key file.

The key file is the one sops reads: --key-file, key_file in the settings,
$SOPS_AGE_KEY_FILE, or the sops default in your user config directory,
in that order.`,
}

func init() {
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysImportCmd)
	keysCmd.AddCommand(keysDeleteCmd)
	keysCmd.AddCommand(keysGetCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysExistsCmd)
}

// resetKeysCommandState resets the keys commands' global state for testing.
func resetKeysCommandState() {
	resetKeysImportCommandState()
	keysListJSON = false
}
