package sops

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	"github.com/PolarWolf314/agekeeper/internal/runner"
)

const recipient = "age1ql3z7hjy54pw3hyww5ayyfg7zqgvc7w3j2elw8zmrj2kg5sfn9aqmcac8p"

func TestEncryptArguments(t *testing.T) {
	tests := []struct {
		name      string
		publicKey string
		inPlace   bool
		want      []string
	}{
		{name: "config recipients", want: []string{"encrypt", "secret.yaml"}},
		{name: "explicit recipient", publicKey: recipient, want: []string{"encrypt", "--age", recipient, "secret.yaml"}},
		{name: "in place", publicKey: recipient, inPlace: true, want: []string{"encrypt", "--age", recipient, "--in-place", "secret.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := runner.NewFake(runner.Response{Result: runner.Result{Stdout: "sops:\n  age: []\n"}})
			client := Client{Runner: fake, Env: []string{"SOPS_AGE_KEY_FILE=/tmp/keys.txt"}}

			var err error
			if tt.inPlace {
				err = client.EncryptInPlace(context.Background(), "secret.yaml", tt.publicKey)
			} else {
				var out string
				out, err = client.Encrypt(context.Background(), "secret.yaml", tt.publicKey)
				if out != "sops:\n  age: []\n" {
					t.Errorf("Expected stdout to be returned, got %q", out)
				}
			}
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}

			calls := fake.Calls()
			if len(calls) != 1 {
				t.Fatalf("Expected 1 call, got %d", len(calls))
			}
			if calls[0].Name != DefaultBinary {
				t.Errorf("Expected binary %q, got %q", DefaultBinary, calls[0].Name)
			}
			if !reflect.DeepEqual(calls[0].Args, tt.want) {
				t.Errorf("Expected args %v, got %v", tt.want, calls[0].Args)
			}
			if !reflect.DeepEqual(calls[0].Env, []string{"SOPS_AGE_KEY_FILE=/tmp/keys.txt"}) {
				t.Errorf("Expected key file in environment, got %v", calls[0].Env)
			}
		})
	}
}

func TestEncryptFailureCarriesOutput(t *testing.T) {
	fake := runner.NewFake(runner.Response{Result: runner.Result{ExitCode: 128, Stderr: "config file not found\n"}})

	_, err := Client{Binary: "/usr/local/bin/sops", Runner: fake}.Encrypt(context.Background(), "secret.yaml", "")
	if !errors.Is(err, kerrors.ErrExternalTool) {
		t.Fatalf("Expected ErrExternalTool, got %v", err)
	}
	var toolErr *kerrors.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatal("Expected a ToolError")
	}
	if toolErr.ExitCode != 128 || toolErr.Output != "config file not found\n" || toolErr.Tool != "/usr/local/bin/sops" {
		t.Errorf("Unexpected tool error %+v", toolErr)
	}
}

func TestDecryptRetriesWhileLocked(t *testing.T) {
	locked := runner.Response{Result: runner.Result{
		ExitCode: 1,
		Stderr:   "The process cannot access the file because it is being used by another process.",
	}}
	fake := runner.NewFake(locked, locked, runner.Response{Result: runner.Result{Stdout: "data:\n  password: hunter2\n"}})

	out, err := Client{Runner: fake, Delay: time.Millisecond}.Decrypt(context.Background(), "secret.yaml")
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if out != "data:\n  password: hunter2\n" {
		t.Errorf("Unexpected plaintext %q", out)
	}
	if calls := fake.Calls(); len(calls) != 3 {
		t.Errorf("Expected 3 calls, got %d", len(calls))
	}
}

func TestDecryptGivesUpAfterAttempts(t *testing.T) {
	locked := runner.Response{Result: runner.Result{ExitCode: 1, Stderr: "the process cannot access the file"}}
	fake := runner.NewFake(locked)

	_, err := Client{Runner: fake, Attempts: 2, Delay: time.Millisecond}.Decrypt(context.Background(), "secret.yaml")
	if !errors.Is(err, kerrors.ErrExternalTool) {
		t.Fatalf("Expected ErrExternalTool, got %v", err)
	}
	if calls := fake.Calls(); len(calls) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(calls))
	}
}

func TestDecryptDoesNotRetryOtherFailures(t *testing.T) {
	fake := runner.NewFake(runner.Response{Result: runner.Result{ExitCode: 128, Stderr: "Error getting data key: 0 successful groups required, got 0"}})

	_, err := Client{Runner: fake, Delay: time.Millisecond}.Decrypt(context.Background(), "secret.yaml")
	if !errors.Is(err, kerrors.ErrExternalTool) {
		t.Fatalf("Expected ErrExternalTool, got %v", err)
	}
	if calls := fake.Calls(); len(calls) != 1 {
		t.Errorf("Expected 1 call, got %d", len(calls))
	}
	if !reflect.DeepEqual(fake.Calls()[0].Args, []string{"decrypt", "secret.yaml"}) {
		t.Errorf("Unexpected args %v", fake.Calls()[0].Args)
	}
}

func TestDecryptHonorsCancellation(t *testing.T) {
	locked := runner.Response{Result: runner.Result{ExitCode: 1, Stderr: "the process cannot access the file"}}
	fake := runner.NewFake(locked)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := Client{Runner: fake, Attempts: 100, Delay: time.Second}.Decrypt(ctx, "secret.yaml")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestEdit(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		wantErr  bool
	}{
		{name: "saved", exitCode: 0},
		{name: "unchanged", exitCode: ExitFileUnchanged},
		{name: "failed", exitCode: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := runner.NewFake(runner.Response{Result: runner.Result{ExitCode: tt.exitCode}})
			err := Client{Runner: fake}.Edit(context.Background(), "secret.yaml")
			if tt.wantErr != (err != nil) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if !reflect.DeepEqual(fake.Calls()[0].Args, []string{"edit", "secret.yaml"}) {
				t.Errorf("Unexpected args %v", fake.Calls()[0].Args)
			}
		})
	}
}

func TestMissingBinary(t *testing.T) {
	notFound := errors.New("executable file not found in $PATH")
	fake := runner.NewFake(runner.Response{Err: notFound})

	_, err := Client{Runner: fake}.Decrypt(context.Background(), "secret.yaml")
	if !errors.Is(err, notFound) {
		t.Fatalf("Expected runner error, got %v", err)
	}
	if errors.Is(err, kerrors.ErrExternalTool) {
		t.Error("A missing binary is not a tool failure")
	}
}
