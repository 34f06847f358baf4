package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/PolarWolf314/agekeeper/internal/utils"
)

// TimestampFormat is the layout of Entry.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Operation names.
const (
	OpCreate  = "create"
	OpImport  = "import"
	OpDelete  = "delete"
	OpEncrypt = "encrypt"
	OpDecrypt = "decrypt"
	OpEdit    = "edit"
)

// Entry is one line of the audit log.
type Entry struct {
	ID        string `json:"id"`   // Random UUID.
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // OS user performing the action.
	Operation string `json:"op"`   // Operation name.

	// Set per operation.
	PublicKey string   `json:"public_key,omitempty"` // For key lifecycle.
	KeyFile   string   `json:"key_file,omitempty"`   // Keyring touched.
	Source    string   `json:"source,omitempty"`     // For import from file.
	Files     []string `json:"files,omitempty"`      // For encrypt/decrypt/edit.
}

// Logger appends entries to the JSON lines file at Path.
type Logger struct {
	Path string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Log appends entry to the log at l.Path, filling ID, Timestamp and User
// when empty. Failures are dropped; a zero Logger records nothing.
func (l Logger) Log(entry Entry) {
	if l.Path == "" {
		return
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == "" {
		now := time.Now
		if l.Now != nil {
			now = l.Now
		}
		entry.Timestamp = now().UTC().Format(TimestampFormat)
	}
	if entry.User == "" {
		if username, err := utils.GetUsername(); err == nil {
			entry.User = username
		}
	}

	if err := os.MkdirAll(filepath.Dir(l.Path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries returns the entries logged at path, or none when the log is
// missing.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries decodes a JSON lines log. Lines that are not valid entries,
// such as a partial write, are dropped.
func ParseEntries(data []byte) ([]Entry, error) {
	var entries []Entry
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if json.Unmarshal(line, &entry) == nil {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Time parses the entry timestamp. Entries written by hand may use plain
// RFC3339.
func (e Entry) Time() (time.Time, error) {
	if t, err := time.Parse(TimestampFormat, e.Timestamp); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, e.Timestamp)
}
