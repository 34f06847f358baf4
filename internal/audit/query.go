package audit

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the layout accepted by Query.Since and Query.Until.
const DateFormat = "2006-01-02"

// Query filters audit entries.
type Query struct {
	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// Operations filters entries by operation types (comma-separated).
	Operations string

	// PublicKey keeps entries about one key.
	PublicKey string

	// Since filters entries after this date (YYYY-MM-DD format).
	Since string

	// Until filters entries before this date (YYYY-MM-DD format).
	Until string
}

// Apply returns the entries matching q, most recent last unless Reverse is
// set. The input slice may be reordered.
func (q Query) Apply(entries []Entry) ([]Entry, error) {
	filtered := entries

	if q.Operations != "" {
		ops := strings.Split(q.Operations, ",")
		for i := range ops {
			ops[i] = strings.TrimSpace(ops[i])
		}
		filtered = filterByOperations(filtered, ops)
	}

	if q.PublicKey != "" {
		filtered = filter(filtered, func(e Entry) bool { return e.PublicKey == q.PublicKey })
	}

	if q.Since != "" {
		since, err := time.Parse(DateFormat, q.Since)
		if err != nil {
			return nil, fmt.Errorf("--since date format invalid, use YYYY-MM-DD: %w", err)
		}
		filtered = filter(filtered, func(e Entry) bool {
			t, err := e.Time()
			return err == nil && !t.Before(since)
		})
	}

	if q.Until != "" {
		until, err := time.Parse(DateFormat, q.Until)
		if err != nil {
			return nil, fmt.Errorf("--until date format invalid, use YYYY-MM-DD: %w", err)
		}
		// Include the entire day by setting to end of day.
		until = until.Add(24*time.Hour - time.Nanosecond)
		filtered = filter(filtered, func(e Entry) bool {
			t, err := e.Time()
			return err == nil && !t.After(until)
		})
	}

	if q.Reverse {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	if q.Limit > 0 && len(filtered) > q.Limit {
		if q.Reverse {
			// When reversed, limit takes first N (most recent).
			filtered = filtered[:q.Limit]
		} else {
			// When not reversed, limit takes last N (most recent).
			filtered = filtered[len(filtered)-q.Limit:]
		}
	}

	return filtered, nil
}

// filterByOperations filters entries by operation types.
func filterByOperations(entries []Entry, ops []string) []Entry {
	opSet := make(map[string]bool)
	for _, op := range ops {
		opSet[strings.ToLower(op)] = true
	}
	return filter(entries, func(e Entry) bool { return opSet[strings.ToLower(e.Operation)] })
}

func filter(entries []Entry, keep func(Entry) bool) []Entry {
	var result []Entry
	for _, e := range entries {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}
