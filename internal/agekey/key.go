package agekey

import (
	"fmt"
	"strings"
	"time"

	"filippo.io/age"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
)

const (
	// CreatedPrefix starts the first line of a record.
	CreatedPrefix = "# created: "
	// PublicKeyPrefix starts the second line of a record.
	PublicKeyPrefix = "# public key: "
)

// Key is one age identity as stored in a key file.
type Key struct {
	CreatedAt  time.Time
	PublicKey  string
	PrivateKey string
}

// FromIdentity builds a record from an age X25519 identity.
func FromIdentity(identity *age.X25519Identity, createdAt time.Time) Key {
	return Key{
		CreatedAt:  createdAt,
		PublicKey:  identity.Recipient().String(),
		PrivateKey: identity.String(),
	}
}

// MarkerLine returns the public key comment line identifying a record.
func MarkerLine(publicKey string) string {
	return PublicKeyPrefix + publicKey
}

// Parse builds a Key from the creation, public key and private key lines
// of one record.
func Parse(createdLine, publicKeyLine, privateKeyLine string) (Key, error) {
	createdLine = strings.TrimRight(createdLine, "\r")
	publicKeyLine = strings.TrimRight(publicKeyLine, "\r")
	privateKeyLine = strings.TrimSpace(privateKeyLine)

	rawCreated, ok := strings.CutPrefix(createdLine, CreatedPrefix)
	if !ok {
		return Key{}, fmt.Errorf("%w: expected %q prefix, got %q", kerrors.ErrMalformedKey, CreatedPrefix, createdLine)
	}
	createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(rawCreated))
	if err != nil {
		return Key{}, fmt.Errorf("%w: invalid creation time %q: %v", kerrors.ErrMalformedKey, rawCreated, err)
	}

	publicKey, ok := strings.CutPrefix(publicKeyLine, PublicKeyPrefix)
	if !ok {
		return Key{}, fmt.Errorf("%w: expected %q prefix, got %q", kerrors.ErrMalformedKey, PublicKeyPrefix, publicKeyLine)
	}
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return Key{}, fmt.Errorf("%w: empty public key", kerrors.ErrMalformedKey)
	}

	if privateKeyLine == "" || strings.HasPrefix(privateKeyLine, "#") {
		return Key{}, fmt.Errorf("%w: missing private key for %s", kerrors.ErrMalformedKey, publicKey)
	}

	return Key{
		CreatedAt:  createdAt,
		PublicKey:  publicKey,
		PrivateKey: privateKeyLine,
	}, nil
}

// ParseText parses a single three-line record. A trailing newline is allowed.
func ParseText(text string) (Key, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) != 3 {
		return Key{}, fmt.Errorf("%w: expected 3 lines, got %d", kerrors.ErrMalformedKey, len(lines))
	}
	return Parse(lines[0], lines[1], lines[2])
}

// ParseKeygenOutput parses the standard output of age-keygen.
func ParseKeygenOutput(output string) (Key, error) {
	output = strings.ReplaceAll(output, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 3 {
		return Key{}, fmt.Errorf("%w: age-keygen printed %d lines, expected 3", kerrors.ErrMalformedKey, len(lines))
	}
	return Parse(lines[0], lines[1], lines[2])
}

// Lines returns the three canonical lines of the record.
func (k Key) Lines() [3]string {
	return [3]string{
		CreatedPrefix + k.CreatedAt.Format(time.RFC3339Nano),
		MarkerLine(k.PublicKey),
		k.PrivateKey,
	}
}

// String returns the canonical record without a trailing newline.
func (k Key) String() string {
	lines := k.Lines()
	return strings.Join(lines[:], "\n")
}

// Equal reports whether both records hold the same identity. The creation
// time is metadata and is ignored.
func (k Key) Equal(other Key) bool {
	return k.PublicKey == other.PublicKey && k.PrivateKey == other.PrivateKey
}

// Validate checks that the private key parses as an age X25519 identity
// and derives the recorded public key.
func (k Key) Validate() error {
	identity, err := age.ParseX25519Identity(k.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrMalformedKey, err)
	}
	if derived := identity.Recipient().String(); derived != k.PublicKey {
		return fmt.Errorf("%w: recorded %s, derived %s", kerrors.ErrKeyMismatch, k.PublicKey, derived)
	}
	return nil
}
