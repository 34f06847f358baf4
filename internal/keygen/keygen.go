// Package keygen produces new age key records.
//
// External shells out to age-keygen, matching what SOPS users run by
// hand. Native generates the identity in process with filippo.io/age and
// is used when age-keygen is not installed.
package keygen

import (
	"context"
	"fmt"
	"time"

	"filippo.io/age"

	"github.com/PolarWolf314/agekeeper/internal/agekey"
	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	"github.com/PolarWolf314/agekeeper/internal/runner"
)

// DefaultBinary is the age-keygen executable looked up on PATH.
const DefaultBinary = "age-keygen"

// Generator creates a new key record.
type Generator interface {
	Generate(ctx context.Context) (agekey.Key, error)
}

// External runs age-keygen with no arguments and parses its output.
type External struct {
	Binary string
	Runner runner.Runner
}

func (g External) Generate(ctx context.Context) (agekey.Key, error) {
	binary := g.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	run := g.Runner
	if run == nil {
		run = runner.Exec{}
	}

	result, err := run.Run(ctx, runner.Command{Name: binary})
	if err != nil {
		return agekey.Key{}, fmt.Errorf("generating key: %w", err)
	}
	if result.ExitCode != 0 {
		return agekey.Key{}, fmt.Errorf("generating key: %w", &kerrors.ToolError{
			Tool:     binary,
			ExitCode: result.ExitCode,
			Output:   result.Output(),
		})
	}

	key, err := agekey.ParseKeygenOutput(result.Stdout)
	if err != nil {
		return agekey.Key{}, fmt.Errorf("parsing %s output: %w", binary, err)
	}
	return key, nil
}

// Native generates X25519 identities in process.
type Native struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

func (g Native) Generate(ctx context.Context) (agekey.Key, error) {
	if err := ctx.Err(); err != nil {
		return agekey.Key{}, err
	}
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return agekey.Key{}, fmt.Errorf("generating age identity: %w", err)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	// age-keygen records whole seconds.
	return agekey.FromIdentity(identity, now().Truncate(time.Second)), nil
}

// New returns the generator named in settings: "native" or "age-keygen".
func New(kind, binary string, run runner.Runner) (Generator, error) {
	switch kind {
	case "", DefaultBinary:
		return External{Binary: binary, Runner: run}, nil
	case "native":
		return Native{}, nil
	default:
		return nil, fmt.Errorf("unknown key generator %q (expected %q or %q)", kind, DefaultBinary, "native")
	}
}
