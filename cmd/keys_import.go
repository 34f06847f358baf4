package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/utils"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var (
	importPublicKey  string
	importPrivateKey string
	importFromStdin  bool
)

func init() {
	keysImportCmd.Flags().StringVar(&importPublicKey, "public-key", "", "public key of the record to copy when the file holds several")
	keysImportCmd.Flags().StringVar(&importPrivateKey, "private-key", "", "import a bare AGE-SECRET-KEY-1 value")
	keysImportCmd.Flags().BoolVar(&importFromStdin, "stdin", false, "read a key record or private key from stdin")
}

// resetKeysImportCommandState resets the import command's global state for testing.
func resetKeysImportCommandState() {
	importPublicKey = ""
	importPrivateKey = ""
	importFromStdin = false
}

var keysImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Copy an existing age key into the key file",
	Long: `Copies an age key into your key file.

The key comes from exactly one of:
  - another key file, selecting a record with --public-key when it holds several
  - a private key passed with --private-key
  - a key record or private key piped in with --stdin

Importing a key that is already present is a no-op.

Examples:
  agekeeper keys import ~/backup/keys.txt
  agekeeper keys import ~/backup/keys.txt --public-key age1...
  age-keygen | agekeeper keys import --stdin`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys import command")

		opts := workflows.ImportKeyOptions{
			PublicKey:  importPublicKey,
			PrivateKey: importPrivateKey,
		}
		if len(args) == 1 {
			opts.FromPath = args[0]
		}
		if importFromStdin {
			data, err := utils.ReadStdin()
			if err != nil {
				return err
			}
			text := strings.TrimSpace(string(data))
			if strings.HasPrefix(text, "AGE-SECRET-KEY-1") {
				opts.PrivateKey = text
			} else {
				opts.Record = text
			}
		}
		if opts.PublicKey != "" && opts.FromPath == "" {
			return fmt.Errorf("--public-key selects a record in a key file and needs a file argument")
		}

		spinner, cleanup := startSpinner("Importing key...", verbose)
		defer cleanup()

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		result, err := workflows.ImportKey(ctx, session, opts)
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}
		Logger.Infof("Imported key %s", result.Key.PublicKey)

		spinner.FinalMSG = ui.Done("Key "+ui.Key.Sprint(result.Key.PublicKey)+" is in "+ui.Path.Sprint(result.KeyFile))
		return nil
	},
}
