package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var keysExistsCmd = &cobra.Command{
	Use:   "exists <public-key>",
	Short: "Check whether a key is in the key file",
	Long: `Checks whether the key file holds the given public key.

Exit codes:
  0 - The key is present
  1 - The key is absent or the key file could not be read`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys exists command")

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		exists, err := workflows.KeyExists(ctx, session, args[0])
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		if !exists {
			fmt.Println(ui.Fail(ui.Key.Sprint(args[0]) + " is not in " + ui.Path.Sprint(session.Manager.KeyFilePath())))
			return reported(fmt.Errorf("%s: %w", args[0], kerrors.ErrKeyNotFound))
		}
		fmt.Println(ui.Done(ui.Key.Sprint(args[0]) + " is in " + ui.Path.Sprint(session.Manager.KeyFilePath())))
		return nil
	},
}
