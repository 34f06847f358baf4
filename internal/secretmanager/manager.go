package secretmanager

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/agekeeper/internal/agekey"
	"github.com/PolarWolf314/agekeeper/internal/audit"
	"github.com/PolarWolf314/agekeeper/internal/configs"
	"github.com/PolarWolf314/agekeeper/internal/filelock"
	"github.com/PolarWolf314/agekeeper/internal/keygen"
	"github.com/PolarWolf314/agekeeper/internal/keyring"
	logger "github.com/PolarWolf314/agekeeper/internal/logging"
	"github.com/PolarWolf314/agekeeper/internal/runner"
	"github.com/PolarWolf314/agekeeper/internal/sops"
	"github.com/PolarWolf314/agekeeper/internal/sopsconfig"
)

// Options configures a Manager.
type Options struct {
	// KeyFilePath is the keyring location. Empty resolves to
	// SOPS_AGE_KEY_FILE or the per-user default.
	KeyFilePath string

	// Generator creates keys for CreateKey. Defaults to running age-keygen.
	Generator keygen.Generator

	// SOPS runs the sops binary. Its Runner defaults to os/exec and its
	// environment gains SOPS_AGE_KEY_FILE.
	SOPS sops.Client

	Arbiter filelock.Arbiter
	Audit   audit.Logger
	Logger  logger.Logger
}

// Manager manages the keys of one keyring and the files encrypted for them.
type Manager struct {
	keyFilePath string
	store       *keyring.Store
	sops        sops.Client
	codec       sopsconfig.Codec
	audit       audit.Logger
	log         logger.Logger
}

// New returns a Manager for the keyring described by opts.
func New(opts Options) (*Manager, error) {
	path, err := configs.ResolveKeyFilePath(opts.KeyFilePath)
	if err != nil {
		return nil, fmt.Errorf("resolving key file path: %w", err)
	}

	client := opts.SOPS
	if client.Runner == nil {
		client.Runner = runner.Exec{}
	}
	client.Env = append(append([]string(nil), client.Env...), configs.KeyFileEnv+"="+path)
	client.Logger = opts.Logger

	generator := opts.Generator
	if generator == nil {
		generator = keygen.External{Binary: keygen.DefaultBinary, Runner: client.Runner}
	}

	arbiter := opts.Arbiter
	arbiter.Logger = opts.Logger

	opts.Logger.Debugf("Using key file %s", path)

	return &Manager{
		keyFilePath: path,
		store: keyring.New(path, keyring.Options{
			Generator: generator,
			Arbiter:   arbiter,
			Logger:    opts.Logger,
		}),
		sops:  client,
		codec: sopsconfig.Codec{Arbiter: arbiter},
		audit: opts.Audit,
		log:   opts.Logger,
	}, nil
}

// KeyFilePath returns the keyring location this Manager operates on.
func (m *Manager) KeyFilePath() string {
	return m.keyFilePath
}

// CreateKey generates a key and adds it to the keyring.
func (m *Manager) CreateKey(ctx context.Context) (agekey.Key, error) {
	key, err := m.store.Create(ctx)
	if err != nil {
		return agekey.Key{}, err
	}
	m.record(audit.Entry{Operation: audit.OpCreate, PublicKey: key.PublicKey})
	return key, nil
}

// ImportKey adds key to the keyring. Importing a key that is already
// present is a no-op.
func (m *Manager) ImportKey(ctx context.Context, key agekey.Key) (agekey.Key, error) {
	imported, err := m.store.Import(ctx, key)
	if err != nil {
		return agekey.Key{}, err
	}
	m.record(audit.Entry{Operation: audit.OpImport, PublicKey: imported.PublicKey})
	return imported, nil
}

// ImportKeyFile copies a key from another key file. publicKey selects the
// record and may be empty when the source holds a single key.
func (m *Manager) ImportKeyFile(ctx context.Context, fromPath, publicKey string) (agekey.Key, error) {
	imported, err := m.store.ImportFile(ctx, fromPath, publicKey)
	if err != nil {
		return agekey.Key{}, err
	}
	m.record(audit.Entry{Operation: audit.OpImport, PublicKey: imported.PublicKey, Source: fromPath})
	return imported, nil
}

// DeleteKey removes key from the keyring.
func (m *Manager) DeleteKey(ctx context.Context, key agekey.Key) (agekey.Key, error) {
	removed, err := m.store.Delete(ctx, key)
	if err != nil {
		return agekey.Key{}, err
	}
	m.record(audit.Entry{Operation: audit.OpDelete, PublicKey: removed.PublicKey})
	return removed, nil
}

// DeleteKeyByPublicKey removes the key holding publicKey and returns it.
func (m *Manager) DeleteKeyByPublicKey(ctx context.Context, publicKey string) (agekey.Key, error) {
	removed, err := m.store.DeleteByPublicKey(ctx, publicKey)
	if err != nil {
		return agekey.Key{}, err
	}
	m.record(audit.Entry{Operation: audit.OpDelete, PublicKey: removed.PublicKey})
	return removed, nil
}

// GetKey returns the key holding publicKey.
func (m *Manager) GetKey(ctx context.Context, publicKey string) (agekey.Key, error) {
	return m.store.Get(ctx, publicKey)
}

// ListKeys returns every key in file order.
func (m *Manager) ListKeys(ctx context.Context) ([]agekey.Key, error) {
	return m.store.List(ctx)
}

// KeyExists reports whether publicKey is in the keyring.
func (m *Manager) KeyExists(ctx context.Context, publicKey string) (bool, error) {
	return m.store.Exists(ctx, publicKey)
}

// Encrypt returns the sops encrypted form of filePath. When publicKey is
// empty, recipients come from the applicable .sops.yaml creation rule.
func (m *Manager) Encrypt(ctx context.Context, filePath, publicKey string) (string, error) {
	out, err := m.sops.Encrypt(ctx, filePath, publicKey)
	if err != nil {
		return "", err
	}
	m.record(audit.Entry{Operation: audit.OpEncrypt, PublicKey: publicKey, Files: []string{filePath}})
	return out, nil
}

// EncryptInPlace replaces filePath with its sops encrypted form.
func (m *Manager) EncryptInPlace(ctx context.Context, filePath, publicKey string) error {
	if err := m.sops.EncryptInPlace(ctx, filePath, publicKey); err != nil {
		return err
	}
	m.record(audit.Entry{Operation: audit.OpEncrypt, PublicKey: publicKey, Files: []string{filePath}})
	return nil
}

// Decrypt returns the plaintext of a sops encrypted file using the keys in
// the keyring.
func (m *Manager) Decrypt(ctx context.Context, filePath string) (string, error) {
	out, err := m.sops.Decrypt(ctx, filePath)
	if err != nil {
		return "", err
	}
	m.record(audit.Entry{Operation: audit.OpDecrypt, Files: []string{filePath}})
	return out, nil
}

// Edit opens a sops encrypted file in the user's editor. It returns when
// the editor exits.
func (m *Manager) Edit(ctx context.Context, filePath string) error {
	if err := m.sops.Edit(ctx, filePath); err != nil {
		return err
	}
	m.record(audit.Entry{Operation: audit.OpEdit, Files: []string{filePath}})
	return nil
}

// ReadSOPSConfig loads a .sops.yaml file.
func (m *Manager) ReadSOPSConfig(ctx context.Context, path string) (*sopsconfig.Config, error) {
	return m.codec.Read(ctx, path)
}

// WriteSOPSConfig stores cfg at path, refusing to replace an existing file
// unless overwrite is set.
func (m *Manager) WriteSOPSConfig(ctx context.Context, path string, cfg *sopsconfig.Config, overwrite bool) error {
	return m.codec.Write(ctx, path, cfg, overwrite)
}

func (m *Manager) record(entry audit.Entry) {
	entry.KeyFile = m.keyFilePath
	m.audit.Log(entry)
}
