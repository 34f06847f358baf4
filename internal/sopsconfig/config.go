package sopsconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	"github.com/PolarWolf314/agekeeper/internal/filelock"
)

// DefaultEncryptedRegex limits encryption to the data sections of
// Kubernetes Secrets.
const DefaultEncryptedRegex = "^(data|stringData)$"

// Config is the content of a .sops.yaml file.
type Config struct {
	CreationRules []CreationRule `yaml:"creation_rules"`
}

// CreationRule tells SOPS which recipients to encrypt matching files for.
type CreationRule struct {
	PathRegex      string `yaml:"path_regex"`
	EncryptedRegex string `yaml:"encrypted_regex"`
	// Age holds recipient public keys, one per line.
	Age string `yaml:"age"`
}

// NewCreationRule returns a rule for pathRegex with the default
// encrypted_regex and the given recipients.
func NewCreationRule(pathRegex string, publicKeys ...string) CreationRule {
	return CreationRule{
		PathRegex:      pathRegex,
		EncryptedRegex: DefaultEncryptedRegex,
		Age:            strings.Join(publicKeys, "\n"),
	}
}

// Recipients returns the public keys listed in the age block. SOPS accepts
// both newline and comma separated lists.
func (r CreationRule) Recipients() []string {
	fields := strings.FieldsFunc(r.Age, func(c rune) bool {
		return c == '\n' || c == ',' || c == '\r'
	})
	recipients := make([]string, 0, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			recipients = append(recipients, field)
		}
	}
	return recipients
}

// MarshalYAML renders the rule with the age block as a literal scalar.
func (r CreationRule) MarshalYAML() (interface{}, error) {
	str := func(value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	}
	age := str(r.Age)
	age.Style = yaml.LiteralStyle

	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			str("path_regex"), str(r.PathRegex),
			str("encrypted_regex"), str(r.EncryptedRegex),
			str("age"), age,
		},
	}, nil
}

// UnmarshalYAML decodes a rule, filling in the default encrypted_regex.
func (r *CreationRule) UnmarshalYAML(node *yaml.Node) error {
	type plain CreationRule
	var decoded plain
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	if decoded.EncryptedRegex == "" {
		decoded.EncryptedRegex = DefaultEncryptedRegex
	}
	*r = CreationRule(decoded)
	return nil
}

// Validate checks that every rule can be applied.
func (c *Config) Validate() error {
	for i, rule := range c.CreationRules {
		if strings.TrimSpace(rule.PathRegex) == "" {
			return fmt.Errorf("creation rule %d: %w: path_regex is empty", i+1, kerrors.ErrInvalidConfig)
		}
		if _, err := regexp.Compile(rule.PathRegex); err != nil {
			return fmt.Errorf("creation rule %d: %w: path_regex: %v", i+1, kerrors.ErrInvalidConfig, err)
		}
		if _, err := regexp.Compile(rule.EncryptedRegex); err != nil {
			return fmt.Errorf("creation rule %d: %w: encrypted_regex: %v", i+1, kerrors.ErrInvalidConfig, err)
		}
	}
	return nil
}

// RuleFor returns the first rule whose path_regex matches path, the same
// way SOPS picks a rule.
func (c *Config) RuleFor(path string) (*CreationRule, error) {
	slashed := filepath.ToSlash(path)
	for i := range c.CreationRules {
		re, err := regexp.Compile(c.CreationRules[i].PathRegex)
		if err != nil {
			return nil, fmt.Errorf("creation rule %d: %w: %v", i+1, kerrors.ErrInvalidConfig, err)
		}
		if re.MatchString(slashed) {
			return &c.CreationRules[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", path, kerrors.ErrNoMatchingRule)
}

// Marshal encodes cfg with two-space indentation.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes and validates a configuration document.
func Unmarshal(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Codec reads and writes configuration files under an exclusive lock.
type Codec struct {
	Arbiter filelock.Arbiter
}

// Read loads the configuration at path.
func (c Codec) Read(ctx context.Context, path string) (*Config, error) {
	var cfg *Config
	err := c.Arbiter.Do(ctx, path, filelock.Read, func(f *filelock.File) error {
		data, err := f.ReadAll()
		if err != nil {
			return err
		}
		cfg, err = Unmarshal(data)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write stores cfg at path, creating parent directories. An existing file
// is left untouched and ErrFileExists returned unless overwrite is set.
func (c Codec) Write(ctx context.Context, path string, cfg *Config, overwrite bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	mode := filelock.Create
	if !overwrite {
		mode = filelock.CreateNew
	}
	err = c.Arbiter.Do(ctx, path, mode, func(f *filelock.File) error {
		return f.Replace(data)
	})
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s: %w", path, kerrors.ErrFileExists)
	}
	return err
}

// Read loads the configuration at path with the default lock settings.
func Read(ctx context.Context, path string) (*Config, error) {
	return Codec{}.Read(ctx, path)
}

// Write stores cfg at path with the default lock settings.
func Write(ctx context.Context, path string, cfg *Config, overwrite bool) error {
	return Codec{}.Write(ctx, path, cfg, overwrite)
}
