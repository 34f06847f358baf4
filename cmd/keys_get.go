package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var keysGetCmd = &cobra.Command{
	Use:   "get <public-key>",
	Short: "Print the full record of a key, private key included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys get command")

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		result, err := workflows.GetKey(ctx, session, args[0])
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		fmt.Println(result.Key.String())
		return nil
	},
}
