package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"filippo.io/age"

	"github.com/PolarWolf314/agekeeper/internal/agekey"
	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
)

// KeyResult contains the key an operation produced or touched.
type KeyResult struct {
	Key agekey.Key

	// KeyFile is the keyring the operation ran against.
	KeyFile string
}

// ImportKeyOptions configures the import workflow. Exactly one source must
// be set.
type ImportKeyOptions struct {
	// FromPath is another key file to copy a record from.
	FromPath string

	// PublicKey selects the record in FromPath. May be empty when the file
	// holds a single key.
	PublicKey string

	// Record is the text of one three-line key record.
	Record string

	// PrivateKey is a bare AGE-SECRET-KEY-1 value. The public key is derived
	// and the creation time set to now.
	PrivateKey string

	// Now defaults to time.Now.
	Now func() time.Time
}

// CreateKey generates a key and adds it to the keyring.
func CreateKey(ctx context.Context, s *Session) (*KeyResult, error) {
	key, err := s.Manager.CreateKey(ctx)
	if err != nil {
		return nil, err
	}
	return &KeyResult{Key: key, KeyFile: s.Manager.KeyFilePath()}, nil
}

// ImportKey adds a key to the keyring from one of the sources in opts.
//
// Returns ErrAmbiguousSource if FromPath holds several keys and no public
// key was given. Returns ErrKeyConflict if the keyring holds a different
// private key for the same public key.
func ImportKey(ctx context.Context, s *Session, opts ImportKeyOptions) (*KeyResult, error) {
	sources := 0
	for _, set := range []bool{opts.FromPath != "", opts.Record != "", opts.PrivateKey != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of a key file, a key record or a private key must be provided")
	}

	var (
		key agekey.Key
		err error
	)
	switch {
	case opts.FromPath != "":
		key, err = s.Manager.ImportKeyFile(ctx, opts.FromPath, opts.PublicKey)

	case opts.Record != "":
		key, err = agekey.ParseText(opts.Record)
		if err == nil {
			key, err = s.Manager.ImportKey(ctx, key)
		}

	default:
		key, err = keyFromPrivateKey(opts.PrivateKey, opts.Now)
		if err == nil {
			key, err = s.Manager.ImportKey(ctx, key)
		}
	}
	if err != nil {
		return nil, err
	}

	return &KeyResult{Key: key, KeyFile: s.Manager.KeyFilePath()}, nil
}

// DeleteKey removes the key holding publicKey.
//
// Returns ErrKeyNotFound if the keyring has no such key.
func DeleteKey(ctx context.Context, s *Session, publicKey string) (*KeyResult, error) {
	key, err := s.Manager.DeleteKeyByPublicKey(ctx, publicKey)
	if err != nil {
		return nil, err
	}
	return &KeyResult{Key: key, KeyFile: s.Manager.KeyFilePath()}, nil
}

// GetKey returns the key holding publicKey.
//
// Returns ErrKeyNotFound if the keyring has no such key.
func GetKey(ctx context.Context, s *Session, publicKey string) (*KeyResult, error) {
	key, err := s.Manager.GetKey(ctx, publicKey)
	if err != nil {
		return nil, err
	}
	return &KeyResult{Key: key, KeyFile: s.Manager.KeyFilePath()}, nil
}

// ListKeysResult contains every key in the keyring.
type ListKeysResult struct {
	Keys    []agekey.Key
	KeyFile string
}

// ListKeys returns the keys in file order.
func ListKeys(ctx context.Context, s *Session) (*ListKeysResult, error) {
	keys, err := s.Manager.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	return &ListKeysResult{Keys: keys, KeyFile: s.Manager.KeyFilePath()}, nil
}

// KeyExists reports whether publicKey is in the keyring.
func KeyExists(ctx context.Context, s *Session, publicKey string) (bool, error) {
	return s.Manager.KeyExists(ctx, publicKey)
}

func keyFromPrivateKey(privateKey string, now func() time.Time) (agekey.Key, error) {
	identity, err := age.ParseX25519Identity(strings.TrimSpace(privateKey))
	if err != nil {
		return agekey.Key{}, fmt.Errorf("%w: %v", kerrors.ErrMalformedKey, err)
	}
	if now == nil {
		now = time.Now
	}
	return agekey.FromIdentity(identity, now().Truncate(time.Second)), nil
}
