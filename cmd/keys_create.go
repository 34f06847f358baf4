package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a new age key and add it to the key file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys create command")
		spinner, cleanup := startSpinner("Creating key...", verbose)
		defer cleanup()

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		result, err := workflows.CreateKey(ctx, session)
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}
		Logger.Infof("Created key %s", result.Key.PublicKey)

		spinner.FinalMSG = ui.Done("Key created in "+ui.Path.Sprint(result.KeyFile)) + "\n" +
			"Public key: " + ui.Key.Sprint(result.Key.PublicKey) + "\n" +
			ui.Hint("Share the public key with whoever writes your "+ui.Path.Sprint(".sops.yaml"))
		return nil
	},
}
