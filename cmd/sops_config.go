package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/sopsconfig"
	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var (
	sopsConfigPath           string
	sopsConfigPathRegex      string
	sopsConfigEncryptedRegex string
	sopsConfigRecipients     []string
	sopsConfigForce          bool
)

func init() {
	sopsConfigCmd.PersistentFlags().StringVar(&sopsConfigPath, "path", workflows.DefaultSOPSConfigPath, "sops configuration file")

	sopsConfigInitCmd.Flags().StringVar(&sopsConfigPathRegex, "path-regex", ".*", "files the creation rule applies to")
	sopsConfigInitCmd.Flags().StringVar(&sopsConfigEncryptedRegex, "encrypted-regex", sopsconfig.DefaultEncryptedRegex, "keys whose values are encrypted")
	sopsConfigInitCmd.Flags().StringArrayVar(&sopsConfigRecipients, "age", nil, "recipient public key, repeatable (default every key in the key file)")
	sopsConfigInitCmd.Flags().BoolVarP(&sopsConfigForce, "force", "f", false, "overwrite an existing file")

	sopsConfigCmd.AddCommand(sopsConfigInitCmd)
	sopsConfigCmd.AddCommand(sopsConfigShowCmd)
	sopsConfigCmd.AddCommand(sopsConfigMatchCmd)
}

// resetSOPSConfigCommandState resets the sops-config commands' global state for testing.
func resetSOPSConfigCommandState() {
	sopsConfigPath = workflows.DefaultSOPSConfigPath
	sopsConfigPathRegex = ".*"
	sopsConfigEncryptedRegex = sopsconfig.DefaultEncryptedRegex
	sopsConfigRecipients = nil
	sopsConfigForce = false
}

var sopsConfigCmd = &cobra.Command{
	Use:   "sops-config",
	Short: "Write and inspect .sops.yaml creation rules",
}

var sopsConfigInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a .sops.yaml with one creation rule",
	Long: `Writes a .sops.yaml with a single creation rule encrypting to age keys.

Without --age every key in your key file becomes a recipient.

Examples:
  agekeeper sops-config init
  agekeeper sops-config init --path-regex '^secrets/' --age age1... --age age1...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting sops-config init command")
		spinner, cleanup := startSpinner("Writing "+sopsConfigPath+"...", verbose)
		defer cleanup()

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		result, err := workflows.SOPSConfigInit(ctx, session, workflows.SOPSConfigInitOptions{
			Path:           sopsConfigPath,
			PathRegex:      sopsConfigPathRegex,
			EncryptedRegex: sopsConfigEncryptedRegex,
			PublicKeys:     sopsConfigRecipients,
			Force:          sopsConfigForce,
		})
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		recipients := result.Config.CreationRules[0].Recipients()
		msg := ui.Done(fmt.Sprintf("Wrote %s with %d recipient(s):", ui.Path.Sprint(result.Path), len(recipients))) + "\n"
		for _, r := range recipients {
			msg += "    - " + ui.Key.Sprint(r) + "\n"
		}
		spinner.FinalMSG = msg + ui.Hint("Run "+ui.Code.Sprint("agekeeper secrets encrypt --in-place <files>")+" to encrypt with it")
		return nil
	},
}

var sopsConfigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the creation rules of a .sops.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting sops-config show command")

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		cfg, err := workflows.SOPSConfigShow(ctx, session, sopsConfigPath)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		for i, rule := range cfg.CreationRules {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("Rule %d\n", i+1)
			fmt.Printf("  path_regex:      %s\n", rule.PathRegex)
			fmt.Printf("  encrypted_regex: %s\n", rule.EncryptedRegex)
			fmt.Println("  recipients:")
			for _, r := range rule.Recipients() {
				fmt.Printf("    - %s\n", ui.Key.Sprint(r))
			}
		}
		return nil
	},
}

var sopsConfigMatchCmd = &cobra.Command{
	Use:   "match <file>",
	Short: "Show which creation rule applies to a file",
	Long: `Shows the first creation rule whose path_regex matches the file, as sops
picks it, and which of its recipients you hold a private key for.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting sops-config match command")

		ctx := context.Background()
		session, err := openSession(ctx)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		match, err := workflows.SOPSConfigMatch(ctx, session, sopsConfigPath, args[0])
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		fmt.Printf("%s matches path_regex %s\n", ui.Path.Sprint(match.File), ui.Code.Sprint(match.Rule.PathRegex))
		for _, r := range match.Known {
			fmt.Println("  " + ui.Success.Sprint("✓") + " " + ui.Key.Sprint(r))
		}
		for _, r := range match.Unknown {
			fmt.Println("  " + ui.Warning.Sprint("⚠") + " " + ui.Key.Sprint(r) + " " + ui.Muted.Sprint("not in your key file"))
		}
		if len(match.Known) == 0 {
			fmt.Println(ui.Hint("You hold none of these keys and cannot decrypt " + match.File))
		}
		return nil
	},
}
