package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/agekeeper/internal/audit"
	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
)

// LogResult contains the outcome of a log operation.
type LogResult struct {
	// Entries are the filtered audit log entries.
	Entries []audit.Entry

	// TotalEntriesBeforeFilter is the count of entries before filtering.
	TotalEntriesBeforeFilter int
}

// Log reads and filters the audit log.
//
// Returns ErrNoFilesFound if auditing is disabled or no audit log exists.
func Log(ctx context.Context, s *Session, query audit.Query) (*LogResult, error) {
	logPath := s.Settings.AuditLog
	if logPath == "" {
		return nil, fmt.Errorf("audit log is disabled: %w", kerrors.ErrNoFilesFound)
	}

	entries, err := audit.ReadEntries(logPath)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%s: %w", logPath, kerrors.ErrNoFilesFound)
	}

	result := &LogResult{
		TotalEntriesBeforeFilter: len(entries),
	}

	filtered, err := query.Apply(entries)
	if err != nil {
		return nil, err
	}
	result.Entries = filtered
	return result, nil
}

// FormatDate formats an audit timestamp as YYYY-MM-DD.
func FormatDate(ts string) string {
	t, err := (audit.Entry{Timestamp: ts}).Time()
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02")
}

// FormatDateTime formats an audit timestamp as YYYY-MM-DD HH:MM:SS in local time.
func FormatDateTime(ts string) string {
	t, err := (audit.Entry{Timestamp: ts}).Time()
	if err != nil {
		return ts
	}
	return t.Local().Format(time.DateTime)
}

// FormatDetails returns the operation-specific part of an entry.
func FormatDetails(e audit.Entry) string {
	var parts []string
	if e.PublicKey != "" {
		parts = append(parts, e.PublicKey)
	}
	if e.Source != "" {
		parts = append(parts, "from "+e.Source)
	}
	if len(e.Files) > 0 {
		parts = append(parts, strings.Join(e.Files, ", "))
	}
	return strings.Join(parts, " ")
}
