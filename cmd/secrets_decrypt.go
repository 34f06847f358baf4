package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <file>",
	Short: "Decrypt a sops encrypted file to stdout",
	Long: `Decrypts a sops encrypted file with the keys in your key file and
prints the plaintext to stdout.

A file briefly locked by another process is retried.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt command")
		spinner, cleanup := startSpinner("Decrypting "+args[0]+"...", verbose)
		defer cleanup()

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		plaintext, err := workflows.Decrypt(ctx, session, args[0])
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		spinner.Stop()
		fmt.Print(plaintext)
		return nil
	},
}
