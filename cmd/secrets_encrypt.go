package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/utils"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var (
	encryptPublicKey string
	encryptInPlace   bool
)

func init() {
	encryptCmd.Flags().StringVar(&encryptPublicKey, "age", "", "encrypt to this public key instead of the .sops.yaml recipients")
	encryptCmd.Flags().BoolVarP(&encryptInPlace, "in-place", "i", false, "replace each file with its encrypted form")
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt <file|dir|glob>...",
	Short: "Encrypt files with sops",
	Long: `Encrypts files with sops.

Arguments can be files, directories (walked recursively, skipping .git) or
globs with ** support. Files that are already sops encrypted are skipped.

Without --in-place a single file is encrypted to stdout.

Examples:
  agekeeper secrets encrypt secrets/app.yaml > secrets/app.enc.yaml
  agekeeper secrets encrypt --in-place "secrets/**/*.yaml"
  agekeeper secrets encrypt --age age1... config.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt command")
		spinner, cleanup := startSpinner("Encrypting files...", verbose)
		defer cleanup()

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		result, err := workflows.Encrypt(ctx, session, workflows.EncryptOptions{
			FilePatterns: args,
			PublicKey:    encryptPublicKey,
			InPlace:      encryptInPlace,
		})
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		if !encryptInPlace {
			// Stop the spinner before the ciphertext goes out.
			spinner.Stop()
			fmt.Print(result.Files[0].Output)
			return nil
		}

		paths := make([]string, 0, len(result.Files))
		for _, f := range result.Files {
			paths = append(paths, f.Path)
		}
		wd, _ := os.Getwd()
		Logger.Infof("Encrypted %d files", len(paths))

		spinner.FinalMSG = ui.Done("Files encrypted in place:") + utils.FormatPaths(paths, wd) +
			ui.Hint("You can now safely commit these files")
		return nil
	},
}
