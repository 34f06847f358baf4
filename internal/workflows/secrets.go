package workflows

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/agekeeper/internal/utils"
)

// EncryptOptions configures the encrypt workflow.
type EncryptOptions struct {
	// FilePatterns specifies files, directories or ** globs to encrypt.
	FilePatterns []string

	// BaseDir resolves relative patterns. Defaults to the working directory.
	BaseDir string

	// PublicKey limits recipients to one key. Empty uses .sops.yaml rules.
	PublicKey string

	// InPlace replaces each file with its encrypted form instead of
	// returning the output.
	InPlace bool
}

// EncryptedFile is the outcome for one file.
type EncryptedFile struct {
	Path string

	// Output holds the encrypted document when not encrypting in place.
	Output string
}

// EncryptResult contains the outcome of an encrypt operation.
type EncryptResult struct {
	Files []EncryptedFile
}

// Encrypt encrypts every file matching opts.FilePatterns with sops.
//
// Files that sops already encrypted (they carry top-level sops metadata)
// are skipped.
//
// Several files can only be encrypted in place.
//
// Returns ErrNoFilesFound if no files match the specified patterns.
func Encrypt(ctx context.Context, s *Session, opts EncryptOptions) (*EncryptResult, error) {
	files, err := resolveFiles(opts.FilePatterns, opts.BaseDir)
	if err != nil {
		return nil, err
	}
	s.Logger.Debugf("Resolved %d files to encrypt", len(files))
	if !opts.InPlace && len(files) > 1 {
		return nil, fmt.Errorf("%d files matched, encrypting more than one file must be done in place", len(files))
	}

	result := &EncryptResult{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := EncryptedFile{Path: file}
		if opts.InPlace {
			err = s.Manager.EncryptInPlace(ctx, file, opts.PublicKey)
		} else {
			entry.Output, err = s.Manager.Encrypt(ctx, file, opts.PublicKey)
		}
		if err != nil {
			return nil, fmt.Errorf("encrypting %s: %w", file, err)
		}
		result.Files = append(result.Files, entry)
	}

	return result, nil
}

// Decrypt returns the plaintext of a sops encrypted file.
func Decrypt(ctx context.Context, s *Session, filePath string) (string, error) {
	if _, err := os.Stat(filePath); err != nil {
		return "", err
	}
	return s.Manager.Decrypt(ctx, filePath)
}

// Edit opens a sops encrypted file in the user's editor.
func Edit(ctx context.Context, s *Session, filePath string) error {
	return s.Manager.Edit(ctx, filePath)
}

func resolveFiles(patterns []string, baseDir string) ([]string, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}
	return utils.ResolveFiles(patterns, baseDir, notEncrypted)
}

// notEncrypted reports whether path lacks sops metadata. Files that cannot
// be read are kept so the error surfaces from sops.
func notEncrypted(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	text := string(data)
	return !strings.Contains(text, "\nsops:\n") &&
		!strings.HasPrefix(text, "sops:\n") &&
		!strings.Contains(text, `"sops": {`) &&
		!strings.Contains(text, "sops_version=")
}
