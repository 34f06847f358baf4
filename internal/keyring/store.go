package keyring

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/PolarWolf314/agekeeper/internal/agekey"
	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	"github.com/PolarWolf314/agekeeper/internal/filelock"
	"github.com/PolarWolf314/agekeeper/internal/keygen"
	logger "github.com/PolarWolf314/agekeeper/internal/logging"
)

// Options configures a Store.
type Options struct {
	// Generator backs Create. Required only when Create is used.
	Generator keygen.Generator
	Arbiter   filelock.Arbiter
	Logger    logger.Logger
}

// Store manages the records of one key file.
type Store struct {
	path      string
	generator keygen.Generator
	arbiter   filelock.Arbiter
	log       logger.Logger
}

// New returns a Store for the key file at path. The file is not touched
// until the first operation.
func New(path string, opts Options) *Store {
	return &Store{
		path:      path,
		generator: opts.Generator,
		arbiter:   opts.Arbiter,
		log:       opts.Logger,
	}
}

// Path returns the key file location.
func (s *Store) Path() string {
	return s.path
}

// Create generates a new key and appends it to the key file.
func (s *Store) Create(ctx context.Context) (agekey.Key, error) {
	if s.generator == nil {
		return agekey.Key{}, errors.New("no key generator configured")
	}
	key, err := s.generator.Generate(ctx)
	if err != nil {
		return agekey.Key{}, err
	}
	s.log.Debugf("Generated key %s", key.PublicKey)
	return s.Import(ctx, key)
}

// Import appends key to the key file unless the same identity is already
// stored. A different private key under the same public key is
// ErrKeyConflict.
func (s *Store) Import(ctx context.Context, key agekey.Key) (agekey.Key, error) {
	if err := key.Validate(); err != nil {
		return agekey.Key{}, fmt.Errorf("importing %s: %w", key.PublicKey, err)
	}

	err := s.arbiter.Do(ctx, s.path, filelock.Create, func(f *filelock.File) error {
		doc, err := s.load(f)
		if err != nil {
			return err
		}

		if i := doc.find(key.PublicKey); i >= 0 {
			if doc.records[i].key.Equal(key) {
				s.log.Debugf("Key %s already present in %s", key.PublicKey, s.path)
				return nil
			}
			return fmt.Errorf("public key %s in %s: %w", key.PublicKey, s.path, kerrors.ErrKeyConflict)
		}

		doc.append(key)
		s.log.Debugf("Appending key %s to %s", key.PublicKey, s.path)
		return f.Replace(doc.bytes())
	})
	if err != nil {
		return agekey.Key{}, err
	}
	return key, nil
}

// ImportFile copies one record from another key file. When publicKey is
// empty the source must hold exactly one record.
func (s *Store) ImportFile(ctx context.Context, fromPath, publicKey string) (agekey.Key, error) {
	var key agekey.Key
	err := s.arbiter.Do(ctx, fromPath, filelock.Read, func(f *filelock.File) error {
		data, err := f.ReadAll()
		if err != nil {
			return err
		}
		doc, err := parseDocument(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", fromPath, err)
		}

		index := 0
		switch {
		case publicKey != "":
			index = doc.find(publicKey)
			if index < 0 {
				return fmt.Errorf("public key %s in %s: %w", publicKey, fromPath, kerrors.ErrKeyNotFound)
			}
		case len(doc.records) == 0:
			return fmt.Errorf("%s contains no keys: %w", fromPath, kerrors.ErrKeyNotFound)
		case len(doc.records) > 1:
			return fmt.Errorf("%s holds %d keys: %w", fromPath, len(doc.records), kerrors.ErrAmbiguousSource)
		}
		key = doc.records[index].key
		return nil
	})
	if err != nil {
		return agekey.Key{}, err
	}

	s.log.Debugf("Importing key %s from %s", key.PublicKey, fromPath)
	return s.Import(ctx, key)
}

// Delete removes the record equal to key. A record under the same public
// key holding a different private key is left in place and reported as
// ErrKeyConflict.
func (s *Store) Delete(ctx context.Context, key agekey.Key) (agekey.Key, error) {
	return s.remove(ctx, key.PublicKey, func(stored agekey.Key) error {
		if !stored.Equal(key) {
			return fmt.Errorf("public key %s in %s: %w", key.PublicKey, s.path, kerrors.ErrKeyConflict)
		}
		return nil
	})
}

// DeleteByPublicKey removes the record holding publicKey and returns it.
func (s *Store) DeleteByPublicKey(ctx context.Context, publicKey string) (agekey.Key, error) {
	return s.remove(ctx, publicKey, nil)
}

func (s *Store) remove(ctx context.Context, publicKey string, check func(agekey.Key) error) (agekey.Key, error) {
	var removed agekey.Key
	err := s.arbiter.Do(ctx, s.path, filelock.Update, func(f *filelock.File) error {
		doc, err := s.load(f)
		if err != nil {
			return err
		}

		i := doc.find(publicKey)
		if i < 0 {
			return s.notFound(publicKey)
		}
		if check != nil {
			if err := check(doc.records[i].key); err != nil {
				return err
			}
		}
		removed = doc.remove(i)
		s.log.Debugf("Removing key %s from %s", publicKey, s.path)
		return f.Replace(doc.bytes())
	})
	if errors.Is(err, fs.ErrNotExist) {
		return agekey.Key{}, s.notFound(publicKey)
	}
	if err != nil {
		return agekey.Key{}, err
	}
	return removed, nil
}

// Get returns the record holding publicKey.
func (s *Store) Get(ctx context.Context, publicKey string) (agekey.Key, error) {
	var key agekey.Key
	err := s.arbiter.Do(ctx, s.path, filelock.Read, func(f *filelock.File) error {
		doc, err := s.load(f)
		if err != nil {
			return err
		}
		i := doc.find(publicKey)
		if i < 0 {
			return s.notFound(publicKey)
		}
		key = doc.records[i].key
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return agekey.Key{}, s.notFound(publicKey)
	}
	if err != nil {
		return agekey.Key{}, err
	}
	return key, nil
}

// Exists reports whether the "# public key: <publicKey>" line occurs in
// the key file. A missing file holds no keys.
func (s *Store) Exists(ctx context.Context, publicKey string) (bool, error) {
	found := false
	err := s.arbiter.Do(ctx, s.path, filelock.Read, func(f *filelock.File) error {
		data, err := f.ReadAll()
		if err != nil {
			return err
		}
		found = hasMarker(data, publicKey)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return found, err
}

// List returns every record in file order. A missing file yields an empty
// list.
func (s *Store) List(ctx context.Context) ([]agekey.Key, error) {
	keys := []agekey.Key{}
	err := s.arbiter.Do(ctx, s.path, filelock.Read, func(f *filelock.File) error {
		doc, err := s.load(f)
		if err != nil {
			return err
		}
		keys = doc.keys()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []agekey.Key{}, nil
	}
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) load(f *filelock.File) (*document, error) {
	data, err := f.ReadAll()
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *Store) notFound(publicKey string) error {
	return fmt.Errorf("public key %s in %s: %w", publicKey, s.path, kerrors.ErrKeyNotFound)
}
