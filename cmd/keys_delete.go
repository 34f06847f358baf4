package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <public-key>",
	Short: "Remove a key from the key file",
	Long: `Removes the key with the given public key from your key file.

Files encrypted only to that key can no longer be decrypted here.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys delete command")
		spinner, cleanup := startSpinner("Deleting key...", verbose)
		defer cleanup()

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		result, err := workflows.DeleteKey(ctx, session, args[0])
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}
		Logger.Infof("Deleted key %s", result.Key.PublicKey)

		spinner.FinalMSG = ui.Done("Deleted "+ui.Key.Sprint(result.Key.PublicKey)+" from "+ui.Path.Sprint(result.KeyFile))
		return nil
	},
}
