package workflows

import (
	"context"
	"fmt"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	"github.com/PolarWolf314/agekeeper/internal/sopsconfig"
)

// DefaultSOPSConfigPath is where sops looks for its configuration.
const DefaultSOPSConfigPath = ".sops.yaml"

// SOPSConfigInitOptions configures the sops-config init workflow.
type SOPSConfigInitOptions struct {
	Path           string
	PathRegex      string
	EncryptedRegex string

	// PublicKeys are the recipients. Empty means every key in the keyring.
	PublicKeys []string

	// Force overwrites an existing file.
	Force bool
}

// SOPSConfigInitResult contains the written configuration.
type SOPSConfigInitResult struct {
	Path   string
	Config *sopsconfig.Config
}

// SOPSConfigInit writes a .sops.yaml with a single creation rule.
//
// Returns ErrKeyNotFound if no recipients were given and the keyring is
// empty. Returns ErrFileExists if the file exists and Force is not set.
func SOPSConfigInit(ctx context.Context, s *Session, opts SOPSConfigInitOptions) (*SOPSConfigInitResult, error) {
	path := opts.Path
	if path == "" {
		path = DefaultSOPSConfigPath
	}
	pathRegex := opts.PathRegex
	if pathRegex == "" {
		pathRegex = ".*"
	}

	recipients := opts.PublicKeys
	if len(recipients) == 0 {
		keys, err := s.Manager.ListKeys(ctx)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("%s holds no keys to use as recipients: %w", s.Manager.KeyFilePath(), kerrors.ErrKeyNotFound)
		}
		for _, key := range keys {
			recipients = append(recipients, key.PublicKey)
		}
	}
	s.Logger.Debugf("Writing %s with %d recipients", path, len(recipients))

	rule := sopsconfig.NewCreationRule(pathRegex, recipients...)
	if opts.EncryptedRegex != "" {
		rule.EncryptedRegex = opts.EncryptedRegex
	}
	cfg := &sopsconfig.Config{CreationRules: []sopsconfig.CreationRule{rule}}

	if err := s.Manager.WriteSOPSConfig(ctx, path, cfg, opts.Force); err != nil {
		return nil, err
	}
	return &SOPSConfigInitResult{Path: path, Config: cfg}, nil
}

// SOPSConfigShow reads the configuration at path.
func SOPSConfigShow(ctx context.Context, s *Session, path string) (*sopsconfig.Config, error) {
	if path == "" {
		path = DefaultSOPSConfigPath
	}
	return s.Manager.ReadSOPSConfig(ctx, path)
}

// RuleMatch describes the creation rule applying to a file.
type RuleMatch struct {
	File string
	Rule *sopsconfig.CreationRule

	// Known lists the recipients that have a private key in the keyring.
	Known []string

	// Unknown lists the recipients missing from the keyring.
	Unknown []string
}

// SOPSConfigMatch finds the rule in the configuration at configPath that
// applies to file and checks which of its recipients the keyring can
// decrypt for.
//
// Returns ErrNoMatchingRule if no rule applies.
func SOPSConfigMatch(ctx context.Context, s *Session, configPath, file string) (*RuleMatch, error) {
	cfg, err := SOPSConfigShow(ctx, s, configPath)
	if err != nil {
		return nil, err
	}
	rule, err := cfg.RuleFor(file)
	if err != nil {
		return nil, err
	}

	match := &RuleMatch{File: file, Rule: rule}
	for _, recipient := range rule.Recipients() {
		exists, err := s.Manager.KeyExists(ctx, recipient)
		if err != nil {
			return nil, err
		}
		if exists {
			match.Known = append(match.Known, recipient)
		} else {
			match.Unknown = append(match.Unknown, recipient)
		}
	}
	return match, nil
}
