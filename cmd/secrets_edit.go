package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/utils"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

// isTerminal reports whether stdin is interactive. Can be overridden for testing.
var isTerminal = utils.IsTerminal

var editCmd = &cobra.Command{
	Use:   "edit <file>",
	Short: "Edit a sops encrypted file in your editor",
	Long: `Opens a sops encrypted file in $EDITOR. sops decrypts it to a temporary
file and encrypts it again when the editor exits.

Needs an interactive terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting edit command")

		if !isTerminal() {
			err := fmt.Errorf("edit needs an interactive terminal")
			fmt.Println(ui.Fail(err.Error()) + "\n" +
				ui.Hint("Use "+ui.Code.Sprint("agekeeper secrets decrypt")+" and "+ui.Code.Sprint("agekeeper secrets encrypt")+" in scripts"))
			return reported(err)
		}

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		// No spinner: sops hands the terminal to the editor.
		if err := workflows.Edit(ctx, session, args[0]); err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}
		Logger.Infof("Edited %s", args[0])
		return nil
	},
}
