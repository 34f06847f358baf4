package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/agekey"
	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var keysListJSON bool

func init() {
	keysListCmd.Flags().BoolVar(&keysListJSON, "json", false, "output as JSON array")
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the keys in the key file",
	Long: `Lists the public keys and creation times in your key file, in file order.
Private keys are never printed; use 'agekeeper keys get' for that.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys list command")

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		result, err := workflows.ListKeys(ctx, session)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}
		Logger.Debugf("Found %d keys in %s", len(result.Keys), result.KeyFile)

		if keysListJSON {
			return outputKeysJSON(result.Keys)
		}

		if len(result.Keys) == 0 {
			fmt.Println("No keys in " + ui.Path.Sprint(result.KeyFile))
			fmt.Println(ui.Hint("Run " + ui.Code.Sprint("agekeeper keys create") + " to create one"))
			return nil
		}

		for _, key := range result.Keys {
			fmt.Printf("%-20s  %s\n", key.CreatedAt.Local().Format(time.DateTime), key.PublicKey)
		}
		return nil
	},
}

type keyJSON struct {
	PublicKey string    `json:"public_key"`
	CreatedAt time.Time `json:"created_at"`
}

func outputKeysJSON(keys []agekey.Key) error {
	out := make([]keyJSON, 0, len(keys))
	for _, key := range keys {
		out = append(out, keyJSON{PublicKey: key.PublicKey, CreatedAt: key.CreatedAt})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal keys to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
