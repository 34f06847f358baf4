package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filippo.io/age"

	"github.com/PolarWolf314/agekeeper/internal/agekey"
	"github.com/PolarWolf314/agekeeper/internal/audit"
	"github.com/PolarWolf314/agekeeper/internal/configs"
	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	logger "github.com/PolarWolf314/agekeeper/internal/logging"
	"github.com/PolarWolf314/agekeeper/internal/runner"
)

type testEnv struct {
	dir      string
	session  *Session
	runner   *runner.Fake
	settings string
	keyFile  string
	auditLog string
}

func newTestEnv(t *testing.T, responses ...runner.Response) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:      dir,
		settings: filepath.Join(dir, "agekeeper", "config.toml"),
		keyFile:  filepath.Join(dir, "keys.txt"),
		auditLog: filepath.Join(dir, "audit.jsonl"),
	}

	settings := configs.DefaultSettings()
	settings.KeyFile = env.keyFile
	settings.KeyGenerator = configs.GeneratorNative
	settings.AuditLog = env.auditLog
	settings.Retry = configs.Retry{Attempts: 3, IntervalMS: 1}
	if err := configs.SaveSettings(env.settings, settings, false); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	if len(responses) == 0 {
		responses = []runner.Response{{}}
	}
	env.runner = runner.NewFake(responses...)

	session, err := Open(context.Background(), OpenOptions{
		SettingsPath: env.settings,
		Runner:       env.runner,
		Logger:       logger.Logger{Out: os.Stderr, Err: os.Stderr},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	env.session = session
	return env
}

func TestOpenKeyFilePrecedence(t *testing.T) {
	env := newTestEnv(t)
	if got := env.session.Manager.KeyFilePath(); got != env.keyFile {
		t.Errorf("Expected key file from settings %s, got %s", env.keyFile, got)
	}

	override := filepath.Join(env.dir, "override.txt")
	session, err := Open(context.Background(), OpenOptions{
		SettingsPath: env.settings,
		KeyFile:      override,
		Runner:       env.runner,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := session.Manager.KeyFilePath(); got != override {
		t.Errorf("Expected override %s, got %s", override, got)
	}
}

func TestOpenRejectsInvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("key_generator = \"rsa\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Open(context.Background(), OpenOptions{SettingsPath: path})
	if !errors.Is(err, kerrors.ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings, got %v", err)
	}
}

func TestKeyLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	created, err := CreateKey(ctx, env.session)
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}
	if created.KeyFile != env.keyFile {
		t.Errorf("Expected key file %s, got %s", env.keyFile, created.KeyFile)
	}

	got, err := GetKey(ctx, env.session, created.Key.PublicKey)
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if !got.Key.Equal(created.Key) {
		t.Errorf("Expected %v, got %v", created.Key, got.Key)
	}

	exists, err := KeyExists(ctx, env.session, created.Key.PublicKey)
	if err != nil || !exists {
		t.Errorf("Expected key to exist, got %v, %v", exists, err)
	}

	if _, err := DeleteKey(ctx, env.session, created.Key.PublicKey); err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}

	list, err := ListKeys(ctx, env.session)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(list.Keys) != 0 {
		t.Errorf("Expected empty keyring, got %d keys", len(list.Keys))
	}

	if _, err := DeleteKey(ctx, env.session, created.Key.PublicKey); !errors.Is(err, kerrors.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound on second delete, got %v", err)
	}
}

func TestImportKeySources(t *testing.T) {
	ctx := context.Background()
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	key := agekey.FromIdentity(identity, now)

	t.Run("private key", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := ImportKey(ctx, env.session, ImportKeyOptions{
			PrivateKey: identity.String() + "\n",
			Now:        func() time.Time { return now },
		})
		if err != nil {
			t.Fatalf("ImportKey failed: %v", err)
		}
		if !result.Key.Equal(key) {
			t.Errorf("Expected %v, got %v", key, result.Key)
		}
	})

	t.Run("record", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := ImportKey(ctx, env.session, ImportKeyOptions{Record: key.String()})
		if err != nil {
			t.Fatalf("ImportKey failed: %v", err)
		}
		if result.Key.PublicKey != key.PublicKey {
			t.Errorf("Expected %s, got %s", key.PublicKey, result.Key.PublicKey)
		}
	})

	t.Run("file", func(t *testing.T) {
		env := newTestEnv(t)
		source := filepath.Join(env.dir, "other.txt")
		if err := os.WriteFile(source, []byte(key.String()), 0600); err != nil {
			t.Fatal(err)
		}
		result, err := ImportKey(ctx, env.session, ImportKeyOptions{FromPath: source})
		if err != nil {
			t.Fatalf("ImportKey failed: %v", err)
		}
		if result.Key.PublicKey != key.PublicKey {
			t.Errorf("Expected %s, got %s", key.PublicKey, result.Key.PublicKey)
		}
	})

	t.Run("malformed private key", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := ImportKey(ctx, env.session, ImportKeyOptions{PrivateKey: "AGE-SECRET-KEY-1NOPE"})
		if !errors.Is(err, kerrors.ErrMalformedKey) {
			t.Errorf("Expected ErrMalformedKey, got %v", err)
		}
	})

	t.Run("no source", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := ImportKey(ctx, env.session, ImportKeyOptions{}); err == nil {
			t.Error("Expected error without a source")
		}
	})

	t.Run("two sources", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := ImportKey(ctx, env.session, ImportKeyOptions{Record: key.String(), PrivateKey: identity.String()})
		if err == nil {
			t.Error("Expected error with two sources")
		}
	})
}

func TestEncryptSkipsEncryptedFiles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, runner.Response{Result: runner.Result{Stdout: "ciphertext"}})

	plain := filepath.Join(env.dir, "secrets", "app.yaml")
	done := filepath.Join(env.dir, "secrets", "db.yaml")
	if err := os.MkdirAll(filepath.Dir(plain), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(plain, []byte("password: hunter2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(done, []byte("password: ENC[AES256_GCM,data:x]\nsops:\n    version: 3.9.0\n"), 0600); err != nil {
		t.Fatal(err)
	}

	result, err := Encrypt(ctx, env.session, EncryptOptions{
		FilePatterns: []string{"secrets/**/*.yaml"},
		BaseDir:      env.dir,
	})
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(result.Files) != 1 || result.Files[0].Path != plain {
		t.Fatalf("Expected only %s, got %+v", plain, result.Files)
	}
	if result.Files[0].Output != "ciphertext" {
		t.Errorf("Expected sops output, got %q", result.Files[0].Output)
	}

	calls := env.runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected one sops call, got %d", len(calls))
	}
	if last := calls[0].Args[len(calls[0].Args)-1]; last != plain {
		t.Errorf("Expected sops to encrypt %s, got %s", plain, last)
	}
}

func TestEncryptSeveralFilesNeedsInPlace(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(env.dir, name), []byte("key: value\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	opts := EncryptOptions{FilePatterns: []string{"*.yaml"}, BaseDir: env.dir}

	if _, err := Encrypt(ctx, env.session, opts); err == nil {
		t.Fatal("Expected error encrypting several files to stdout")
	}
	if len(env.runner.Calls()) != 0 {
		t.Error("Expected sops not to run")
	}

	opts.InPlace = true
	result, err := Encrypt(ctx, env.session, opts)
	if err != nil {
		t.Fatalf("Encrypt in place failed: %v", err)
	}
	if len(result.Files) != 2 {
		t.Errorf("Expected 2 files, got %d", len(result.Files))
	}
	for _, call := range env.runner.Calls() {
		if !containsArg(call.Args, "--in-place") {
			t.Errorf("Expected --in-place in %v", call.Args)
		}
	}
}

func containsArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

func TestEncryptNoFiles(t *testing.T) {
	env := newTestEnv(t)
	_, err := Encrypt(context.Background(), env.session, EncryptOptions{
		FilePatterns: []string{"*.yaml"},
		BaseDir:      env.dir,
	})
	if !errors.Is(err, kerrors.ErrNoFilesFound) {
		t.Errorf("Expected ErrNoFilesFound, got %v", err)
	}
}

func TestDecryptMissingFile(t *testing.T) {
	env := newTestEnv(t)
	_, err := Decrypt(context.Background(), env.session, filepath.Join(env.dir, "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
	if len(env.runner.Calls()) != 0 {
		t.Error("Expected sops not to run")
	}
}

func TestSOPSConfigInitUsesKeyring(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	path := filepath.Join(env.dir, ".sops.yaml")

	if _, err := SOPSConfigInit(ctx, env.session, SOPSConfigInitOptions{Path: path}); !errors.Is(err, kerrors.ErrKeyNotFound) {
		t.Fatalf("Expected ErrKeyNotFound with an empty keyring, got %v", err)
	}

	a, err := CreateKey(ctx, env.session)
	if err != nil {
		t.Fatal(err)
	}
	b, err := CreateKey(ctx, env.session)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := SOPSConfigInit(ctx, env.session, SOPSConfigInitOptions{Path: path, PathRegex: `\.yaml$`}); err != nil {
		t.Fatalf("SOPSConfigInit failed: %v", err)
	}

	cfg, err := SOPSConfigShow(ctx, env.session, path)
	if err != nil {
		t.Fatalf("SOPSConfigShow failed: %v", err)
	}
	recipients := cfg.CreationRules[0].Recipients()
	if len(recipients) != 2 || recipients[0] != a.Key.PublicKey || recipients[1] != b.Key.PublicKey {
		t.Errorf("Expected both keys as recipients, got %v", recipients)
	}

	_, err = SOPSConfigInit(ctx, env.session, SOPSConfigInitOptions{Path: path})
	if !errors.Is(err, kerrors.ErrFileExists) {
		t.Errorf("Expected ErrFileExists, got %v", err)
	}
	if _, err := SOPSConfigInit(ctx, env.session, SOPSConfigInitOptions{Path: path, Force: true}); err != nil {
		t.Errorf("Expected Force to overwrite, got %v", err)
	}
}

func TestSOPSConfigMatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	path := filepath.Join(env.dir, ".sops.yaml")

	known, err := CreateKey(ctx, env.session)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	unknown := foreign.Recipient().String()

	_, err = SOPSConfigInit(ctx, env.session, SOPSConfigInitOptions{
		Path:       path,
		PathRegex:  `^secrets/`,
		PublicKeys: []string{known.Key.PublicKey, unknown},
	})
	if err != nil {
		t.Fatal(err)
	}

	match, err := SOPSConfigMatch(ctx, env.session, path, "secrets/app.yaml")
	if err != nil {
		t.Fatalf("SOPSConfigMatch failed: %v", err)
	}
	if len(match.Known) != 1 || match.Known[0] != known.Key.PublicKey {
		t.Errorf("Expected known %s, got %v", known.Key.PublicKey, match.Known)
	}
	if len(match.Unknown) != 1 || match.Unknown[0] != unknown {
		t.Errorf("Expected unknown %s, got %v", unknown, match.Unknown)
	}

	if _, err := SOPSConfigMatch(ctx, env.session, path, "config/app.yaml"); !errors.Is(err, kerrors.ErrNoMatchingRule) {
		t.Errorf("Expected ErrNoMatchingRule, got %v", err)
	}
}

func TestSettingsInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agekeeper", "config.toml")

	result, err := SettingsInit(path, false)
	if err != nil {
		t.Fatalf("SettingsInit failed: %v", err)
	}
	if result.Settings.SOPSBinary != "sops" {
		t.Errorf("Expected default sops binary, got %q", result.Settings.SOPSBinary)
	}
	if _, err := configs.LoadSettings(path); err != nil {
		t.Errorf("Expected written settings to load, got %v", err)
	}

	if _, err := SettingsInit(path, false); !errors.Is(err, kerrors.ErrFileExists) {
		t.Errorf("Expected ErrFileExists, got %v", err)
	}
	if _, err := SettingsInit(path, true); err != nil {
		t.Errorf("Expected force to overwrite, got %v", err)
	}
}

func TestLogFiltersAuditTrail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := Log(ctx, env.session, audit.Query{}); !errors.Is(err, kerrors.ErrNoFilesFound) {
		t.Fatalf("Expected ErrNoFilesFound before any operation, got %v", err)
	}

	a, err := CreateKey(ctx, env.session)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateKey(ctx, env.session); err != nil {
		t.Fatal(err)
	}
	if _, err := DeleteKey(ctx, env.session, a.Key.PublicKey); err != nil {
		t.Fatal(err)
	}

	result, err := Log(ctx, env.session, audit.Query{Operations: audit.OpDelete})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if result.TotalEntriesBeforeFilter != 3 {
		t.Errorf("Expected 3 entries before filtering, got %d", result.TotalEntriesBeforeFilter)
	}
	if len(result.Entries) != 1 || result.Entries[0].PublicKey != a.Key.PublicKey {
		t.Errorf("Expected one delete of %s, got %+v", a.Key.PublicKey, result.Entries)
	}
	if details := FormatDetails(result.Entries[0]); !strings.Contains(details, a.Key.PublicKey) {
		t.Errorf("Expected details to name the key, got %q", details)
	}
}

func TestLogDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.session.Settings.AuditLog = ""
	if _, err := Log(context.Background(), env.session, audit.Query{}); !errors.Is(err, kerrors.ErrNoFilesFound) {
		t.Errorf("Expected ErrNoFilesFound, got %v", err)
	}
}

func TestFormatDateTimeFallsBack(t *testing.T) {
	if got := FormatDateTime("not a time"); got != "not a time" {
		t.Errorf("Expected unparseable timestamp unchanged, got %q", got)
	}
	if got := FormatDate("2024-03-01T12:00:00Z"); got != "2024-03-01" {
		t.Errorf("Expected 2024-03-01, got %q", got)
	}
}
