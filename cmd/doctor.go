package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/agekeeper/internal/ui"
	"github.com/PolarWolf314/agekeeper/internal/workflows"
)

var (
	doctorJSONOutput bool
	doctorSOPSConfig string

	// doctorLookPath resolves sops and age-keygen. Nil means exec.LookPath.
	doctorLookPath func(string) (string, error)
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")
	doctorCmd.Flags().StringVar(&doctorSOPSConfig, "sops-config", workflows.DefaultSOPSConfigPath, "sops configuration file to check")
}

func resetDoctorCommandState() {
	doctorJSONOutput = false
	doctorSOPSConfig = workflows.DefaultSOPSConfigPath
	doctorLookPath = nil
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on your sops and age setup",
	Long: `Runs a series of health checks and reports issues.

The doctor command checks:
  - Settings file validity
  - sops and age-keygen availability
  - Key file parseability and permissions
  - .sops.yaml validity and whether you hold its recipients' keys

Exit codes:
  0 - No errors (warnings may be present)
  1 - Errors found

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting doctor command")

	spinner, cleanup := startSpinner("Running health checks...", verbose)
	defer cleanup()

	result, err := workflows.Doctor(context.Background(), workflows.DoctorOptions{
		SettingsPath:   settingsPath,
		KeyFile:        keyFile,
		SOPSConfigPath: doctorSOPSConfig,
		LookPath:       doctorLookPath,
	})
	if err != nil {
		spinner.FinalMSG = ui.Fail("Failed to run health checks: " + err.Error())
		return reported(err)
	}

	for _, check := range result.Checks {
		Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
	}

	spinner.Stop()
	if doctorJSONOutput {
		if err := outputDoctorJSON(result); err != nil {
			return err
		}
	} else {
		printDoctorResults(result)
		switch {
		case result.Summary.Errors > 0:
			spinner.FinalMSG = ui.Fail("Health checks completed with errors")
		case result.Summary.Warnings > 0:
			spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Health checks completed with warnings"
		default:
			spinner.FinalMSG = ui.Done("Health checks completed")
		}
	}

	if result.HasErrors() {
		return reported(errors.New("health checks found errors"))
	}
	return nil
}

// outputDoctorJSON outputs the result as JSON.
func outputDoctorJSON(result *workflows.DoctorResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// printDoctorResults prints the doctor results in a human-readable format.
func printDoctorResults(result *workflows.DoctorResult) {
	for _, check := range result.Checks {
		var statusIcon string
		switch check.Status {
		case workflows.CheckPass:
			statusIcon = ui.Success.Sprint("✓")
		case workflows.CheckWarning:
			statusIcon = ui.Warning.Sprint("⚠")
		case workflows.CheckError:
			statusIcon = ui.Error.Sprint("✗")
		}
		fmt.Printf("%s %-20s %s\n", statusIcon, check.Name, check.Message)
	}

	fmt.Println()
	fmt.Printf("Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Printf(", %s", ui.Warning.Sprint(fmt.Sprintf("%d warning(s)", result.Summary.Warnings)))
	}
	if result.Summary.Errors > 0 {
		fmt.Printf(", %s", ui.Error.Sprint(fmt.Sprintf("%d error(s)", result.Summary.Errors)))
	}
	fmt.Println()

	if len(result.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("Suggestions:")
		for _, suggestion := range result.Suggestions {
			fmt.Println("  " + ui.Hint(suggestion))
		}
	}
}
