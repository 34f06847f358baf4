package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/utils"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Encrypt, decrypt and edit files with sops",
	Long: `Runs sops against your key file.

Recipients come from the .sops.yaml creation rules unless --age names one.`,
}

func init() {
	secretsCmd.AddCommand(encryptCmd)
	secretsCmd.AddCommand(decryptCmd)
	secretsCmd.AddCommand(editCmd)
}

// resetSecretsCommandState resets the secrets commands' global state for testing.
func resetSecretsCommandState() {
	encryptPublicKey = ""
	encryptInPlace = false
	isTerminal = utils.IsTerminal
}
