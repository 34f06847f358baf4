package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"runtime"

	"github.com/PolarWolf314/agekeeper/internal/configs"
	"github.com/PolarWolf314/agekeeper/internal/keyring"
	"github.com/PolarWolf314/agekeeper/internal/sopsconfig"
)

// CheckStatus grades one doctor check. It is encoded in JSON by name.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	// CheckWarning is reported but does not fail doctor.
	CheckWarning
	// CheckError makes doctor exit non-zero.
	CheckError
)

var checkStatusNames = [...]string{
	CheckPass:    "pass",
	CheckWarning: "warning",
	CheckError:   "error",
}

func (s CheckStatus) String() string {
	if s < 0 || int(s) >= len(checkStatusNames) {
		return "unknown"
	}
	return checkStatusNames[s]
}

func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *CheckStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for status, n := range checkStatusNames {
		if n == name {
			*s = CheckStatus(status)
			return nil
		}
	}
	return fmt.Errorf("unknown check status %q", name)
}

// CheckResult is the outcome of one check over the keyring, settings or
// the sops toolchain.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult lists every check in the order it ran.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	SettingsPath string

	// KeyFile overrides the keyring location, as --key-file does.
	KeyFile string

	// SOPSConfigPath defaults to .sops.yaml in the working directory.
	SOPSConfigPath string

	// LookPath resolves executables. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

type doctorEnv struct {
	opts     DoctorOptions
	settings *configs.Settings
	keyFile  string
	keys     map[string]bool
}

// Doctor runs health checks on the local sops/age setup.
//
// The doctor workflow checks:
//   - Settings file validity
//   - sops and age-keygen availability
//   - Keyring parseability and permissions
//   - .sops.yaml validity and recipient coverage
//
// Doctor never fails because a check failed; failures are reported in
// the result.
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.SOPSConfigPath == "" {
		opts.SOPSConfigPath = DefaultSOPSConfigPath
	}
	if opts.SettingsPath == "" {
		path, err := configs.SettingsPath()
		if err != nil {
			return nil, err
		}
		opts.SettingsPath = path
	}
	env := &doctorEnv{opts: opts}

	checks := []func(context.Context) CheckResult{
		env.checkSettings,
		env.checkSOPSBinary,
		env.checkKeygenBinary,
		env.checkKeyring,
		env.checkKeyringPermissions,
		env.checkSOPSConfig,
	}

	var results []CheckResult
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, check(ctx))
	}

	summary := calculateDoctorSummary(results)

	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

func (e *doctorEnv) checkSettings(ctx context.Context) CheckResult {
	const name = "Settings"
	settings, err := configs.LoadSettings(e.opts.SettingsPath)
	if err != nil {
		// Later checks still run against the defaults.
		e.settings = configs.DefaultSettings()
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Fix or remove %s", e.opts.SettingsPath),
		}
	}
	e.settings = settings

	if _, err := os.Stat(e.opts.SettingsPath); errors.Is(err, fs.ErrNotExist) {
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: "No settings file, using defaults",
		}
	}
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Settings valid (%s)", e.opts.SettingsPath),
	}
}

func (e *doctorEnv) checkSOPSBinary(ctx context.Context) CheckResult {
	const name = "sops"
	path, err := e.opts.LookPath(e.settings.SOPSBinary)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("%s not found on PATH", e.settings.SOPSBinary),
			Suggestion: "Install sops or set sops_binary in the settings file",
		}
	}
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

func (e *doctorEnv) checkKeygenBinary(ctx context.Context) CheckResult {
	const name = "age-keygen"
	if e.settings.KeyGenerator == configs.GeneratorNative {
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: "Not needed, keys are generated natively",
		}
	}
	path, err := e.opts.LookPath(e.settings.AgeKeygenBinary)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%s not found on PATH, keys create will fail", e.settings.AgeKeygenBinary),
			Suggestion: fmt.Sprintf("Install age or set key_generator = %q in the settings file", configs.GeneratorNative),
		}
	}
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

func (e *doctorEnv) checkKeyring(ctx context.Context) CheckResult {
	const name = "Keyring"
	override := e.opts.KeyFile
	if override == "" {
		override = e.settings.KeyFile
	}
	keyFile, err := configs.ResolveKeyFilePath(override)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Could not resolve the key file: %v", err),
		}
	}
	e.keyFile = keyFile

	if _, err := os.Stat(keyFile); errors.Is(err, fs.ErrNotExist) {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%s does not exist", keyFile),
			Suggestion: "Run 'agekeeper keys create' to create a key",
		}
	}

	keys, err := keyring.New(keyFile, keyring.Options{}).List(ctx)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Repair the malformed record in %s", keyFile),
		}
	}
	e.keys = make(map[string]bool, len(keys))
	for _, key := range keys {
		e.keys[key.PublicKey] = true
	}
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("%d key(s) in %s", len(keys), keyFile),
	}
}

func (e *doctorEnv) checkKeyringPermissions(ctx context.Context) CheckResult {
	const name = "Keyring permissions"
	if e.keys == nil {
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: "Skipped, no readable keyring",
		}
	}
	if runtime.GOOS == "windows" {
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: "Skipped on Windows",
		}
	}

	info, err := os.Stat(e.keyFile)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: err.Error(),
		}
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%s is readable by others (%#o)", e.keyFile, perm),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s'", e.keyFile),
		}
	}
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: "Key file is only accessible by its owner",
	}
}

func (e *doctorEnv) checkSOPSConfig(ctx context.Context) CheckResult {
	const name = "SOPS configuration"
	path := e.opts.SOPSConfigPath

	cfg, err := sopsconfig.Read(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%s not found", path),
			Suggestion: "Run 'agekeeper sops-config init' to create one",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Check %s for syntax errors", path),
		}
	}

	var missing int
	for _, rule := range cfg.CreationRules {
		for _, recipient := range rule.Recipients() {
			if !e.keys[recipient] {
				missing++
			}
		}
	}
	if missing > 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%d recipient(s) have no private key in the keyring", missing),
			Suggestion: "Import the missing keys with 'agekeeper keys import'",
		}
	}
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("%d creation rule(s), all recipients in the keyring", len(cfg.CreationRules)),
	}
}

func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}

// HasErrors reports whether any check failed.
func (r *DoctorResult) HasErrors() bool {
	return r.Summary.Errors > 0
}
