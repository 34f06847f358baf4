package cmd

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/agekeeper/internal/agekey"
	"github.com/PolarWolf314/agekeeper/internal/configs"
	"github.com/PolarWolf314/agekeeper/internal/keyring"
	"github.com/PolarWolf314/agekeeper/internal/runner"
)

// testEnv is an isolated agekeeper installation in a temporary directory.
type testEnv struct {
	dir      string
	settings string
	keyFile  string
	auditLog string
	runner   *runner.Fake
}

// setupTestEnvironment writes settings using the native key generator, points
// the CLI at them and changes into a fresh working directory.
func setupTestEnvironment(t *testing.T, responses ...runner.Response) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:      dir,
		settings: filepath.Join(dir, "config", "agekeeper.toml"),
		keyFile:  filepath.Join(dir, "config", "keys.txt"),
		auditLog: filepath.Join(dir, "config", "audit.jsonl"),
	}

	settings := configs.DefaultSettings()
	settings.KeyFile = env.keyFile
	settings.KeyGenerator = configs.GeneratorNative
	settings.AuditLog = env.auditLog
	settings.Retry = configs.Retry{Attempts: 3, IntervalMS: 1}
	if err := configs.SaveSettings(env.settings, settings, false); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	work := filepath.Join(dir, "work")
	if err := os.MkdirAll(work, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(work); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	if len(responses) == 0 {
		responses = []runner.Response{{}}
	}
	env.runner = runner.NewFake(responses...)

	ResetGlobalState()
	t.Cleanup(func() {
		ResetGlobalState()
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
	})
	return env
}

// run executes agekeeper with args against env and returns everything printed.
func (env testEnv) run(args ...string) (string, error) {
	return captureOutput(func() error {
		ResetGlobalState()
		SetRunner(env.runner)
		RootCmd.SetArgs(append([]string{"--config", env.settings}, args...))
		return RootCmd.Execute()
	})
}

// keys returns the records currently in the key file.
func (env testEnv) keys(t *testing.T) []agekey.Key {
	t.Helper()
	keys, err := keyring.New(env.keyFile, keyring.Options{}).List(context.Background())
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	return keys
}

// captureOutput captures both stdout and stderr during function execution.
// Stdout comes first in the result.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	drain := func(r *os.File) <-chan string {
		out := make(chan string, 1)
		go func() {
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, r); err != nil {
				log.Fatalf("Failed to run copy command: %s", err)
			}
			out <- buf.String()
		}()
		return out
	}
	stdoutChan := drain(stdoutReader)
	stderrChan := drain(stderrReader)

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan + <-stderrChan, err
}

// withStdin replaces os.Stdin with a pipe holding data for the duration of the test.
func withStdin(t *testing.T, data string) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteString(data); err != nil {
		t.Fatal(err)
	}
	w.Close()

	original := os.Stdin
	os.Stdin = r
	t.Cleanup(func() {
		os.Stdin = original
		r.Close()
	})
}
