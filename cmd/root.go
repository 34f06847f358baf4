package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	logger "github.com/PolarWolf314/agekeeper/internal/logging"
	"github.com/PolarWolf314/agekeeper/internal/runner"
	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/utils"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var (
	verbose      bool
	debug        bool
	keyFile      string
	settingsPath string
	Logger       logger.Logger

	// commandRunner executes sops and age-keygen. Nil means os/exec.
	commandRunner runner.Runner

	RootCmd = &cobra.Command{
		Use:   "agekeeper",
		Short: "agekeeper - manage age keys and sops encrypted files",
		Long: `agekeeper keeps the age key file sops reads (SOPS_AGE_KEY_FILE) in order
and runs sops against it.

Features:
  - Create, import, delete and inspect age keys
  - Encrypt, decrypt and edit files with sops
  - Write .sops.yaml creation rules for the keys you hold
  - Audit every key and file operation

Run 'agekeeper help <command>' for more details on a specific command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Diagnostics go to stderr so they never mix with decrypted output.
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     os.Stderr,
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
		},
		Run: func(cmd *cobra.Command, args []string) {
			if utils.IsOutputTerminal() {
				banner := figure.NewFigure("agekeeper", "small", true)
				fmt.Println(banner.String())
			}
			fmt.Println("Run 'agekeeper --help' to see available commands.")
		},
	}
)

func init() {
	addGlobalFlags(RootCmd.PersistentFlags())

	RootCmd.AddCommand(keysCmd)
	RootCmd.AddCommand(secretsCmd)
	RootCmd.AddCommand(sopsConfigCmd)
	RootCmd.AddCommand(settingsCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(doctorCmd)
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&debug, "debug", "d", false, "enable debug output")
	flags.StringVar(&keyFile, "key-file", "", "age key file to use (default $SOPS_AGE_KEY_FILE or the sops default)")
	flags.StringVar(&settingsPath, "config", "", "agekeeper settings file (default $AGEKEEPER_CONFIG or the user config dir)")
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		if !errors.As(err, new(reportedError)) {
			fmt.Fprintln(os.Stderr, ui.Fail(err.Error()))
		}
		os.Exit(1)
	}
}

// openSession loads settings and builds the secret manager for one command.
func openSession(ctx context.Context) (*workflows.Session, error) {
	return workflows.Open(ctx, workflows.OpenOptions{
		KeyFile:      keyFile,
		SettingsPath: settingsPath,
		Runner:       commandRunner,
		Logger:       Logger,
	})
}

// Helper functions for testing

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	keyFile = ""
	settingsPath = ""
	commandRunner = nil
	resetKeysCommandState()
	resetSecretsCommandState()
	resetSOPSConfigCommandState()
	resetSettingsCommandState()
	resetLogCommandState()
	resetDoctorCommandState()
}

// SetRunner sets the runner used for sops and age-keygen for testing.
func SetRunner(r runner.Runner) {
	commandRunner = r
}
