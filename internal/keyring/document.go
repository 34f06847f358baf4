package keyring

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/agekeeper/internal/agekey"
	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
)

// document is a parsed key file. Lines outside records are kept verbatim
// so rewriting the file only touches the records being changed.
type document struct {
	lines    []string
	newline  string
	trailing bool
	records  []record
}

type record struct {
	key agekey.Key
	// line is the index of the record's "# created:" line.
	line int
}

func parseDocument(data []byte) (*document, error) {
	text := string(data)
	doc := &document{newline: "\n"}
	if strings.Contains(text, "\r\n") {
		doc.newline = "\r\n"
	}
	if text == "" {
		return doc, nil
	}

	doc.trailing = strings.HasSuffix(text, "\n")
	doc.lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i := range doc.lines {
		doc.lines[i] = strings.TrimSuffix(doc.lines[i], "\r")
	}

	for i := 0; i < len(doc.lines); i++ {
		if !strings.HasPrefix(doc.lines[i], agekey.CreatedPrefix) {
			continue
		}
		if i+2 >= len(doc.lines) {
			return nil, fmt.Errorf("line %d: %w: record is truncated", i+1, kerrors.ErrMalformedKey)
		}
		key, err := agekey.Parse(doc.lines[i], doc.lines[i+1], doc.lines[i+2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		doc.records = append(doc.records, record{key: key, line: i})
		i += 2
	}
	return doc, nil
}

// find returns the index of the record holding publicKey, or -1.
func (d *document) find(publicKey string) int {
	for i, r := range d.records {
		if r.key.PublicKey == publicKey {
			return i
		}
	}
	return -1
}

func (d *document) keys() []agekey.Key {
	keys := make([]agekey.Key, 0, len(d.records))
	for _, r := range d.records {
		keys = append(keys, r.key)
	}
	return keys
}

func (d *document) append(key agekey.Key) {
	lines := key.Lines()
	d.records = append(d.records, record{key: key, line: len(d.lines)})
	d.lines = append(d.lines, lines[:]...)
	d.trailing = true
}

// remove deletes the record at index i together with its three lines and
// one blank separator line: the one after it, or the one before it when
// the record ends the file.
func (d *document) remove(i int) agekey.Key {
	removed := d.records[i]
	start, end := removed.line, removed.line+3
	switch {
	case end < len(d.lines) && d.lines[end] == "":
		end++
	case end == len(d.lines) && start > 0 && d.lines[start-1] == "":
		start--
	}
	d.lines = append(d.lines[:start], d.lines[end:]...)

	d.records = append(d.records[:i], d.records[i+1:]...)
	for j := i; j < len(d.records); j++ {
		d.records[j].line -= end - start
	}
	return removed.key
}

func (d *document) bytes() []byte {
	if len(d.lines) == 0 {
		return nil
	}
	text := strings.Join(d.lines, d.newline)
	if d.trailing {
		text += d.newline
	}
	return []byte(text)
}

// hasMarker reports whether the exact public key line occurs in data.
func hasMarker(data []byte, publicKey string) bool {
	marker := agekey.MarkerLine(publicKey)
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSuffix(line, "\r") == marker {
			return true
		}
	}
	return false
}
