package cmd

import (
	"errors"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	"github.com/PolarWolf314/agekeeper/internal/ui"
)

// formatError formats errors shared by every command for display to the user.
func formatError(err error) string {
	var toolErr *kerrors.ToolError

	switch {
	case errors.Is(err, kerrors.ErrKeyNotFound):
		return ui.Fail(err.Error()) + "\n" +
			ui.Hint("Run "+ui.Code.Sprint("agekeeper keys list")+" to see the keys you hold")

	case errors.Is(err, kerrors.ErrAmbiguousSource):
		return ui.Fail(err.Error()) + "\n" +
			ui.Hint("Pass "+ui.Code.Sprint("--public-key")+" to pick one")

	case errors.Is(err, kerrors.ErrKeyConflict):
		return ui.Fail(err.Error()) + "\n" +
			ui.Hint("Delete the stored key first if you really mean to replace it")

	case errors.Is(err, kerrors.ErrMalformedKey), errors.Is(err, kerrors.ErrKeyMismatch):
		return ui.Fail(err.Error())

	case errors.Is(err, kerrors.ErrFileExists):
		return ui.Fail(err.Error()) + "\n" +
			ui.Hint("Use "+ui.Code.Sprint("--force")+" to overwrite it")

	case errors.Is(err, kerrors.ErrFileLocked):
		return ui.Fail(err.Error()) + "\n" +
			ui.Hint("Another agekeeper or sops process holds the file, try again")

	case errors.Is(err, kerrors.ErrNoFilesFound):
		return ui.Fail(err.Error())

	case errors.Is(err, kerrors.ErrInvalidConfig), errors.Is(err, kerrors.ErrNoMatchingRule):
		return ui.Fail(err.Error())

	case errors.Is(err, kerrors.ErrInvalidSettings):
		return ui.Fail(err.Error()) + "\n" +
			ui.Hint("Run "+ui.Code.Sprint("agekeeper doctor")+" to check your setup")

	case errors.As(err, &toolErr):
		msg := ui.Fail(toolErr.Tool + " failed")
		if toolErr.Output != "" {
			msg += "\n" + ui.Error.Sprint("Error: ") + toolErr.Output
		}
		return msg

	default:
		return ui.Fail(err.Error())
	}
}

// reportedError marks an error whose message was already shown to the
// user, so Execute only sets the exit status.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	return reportedError{err: err}
}
