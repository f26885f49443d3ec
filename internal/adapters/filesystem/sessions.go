package filesystem

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/bidsfix/internal/ports/primary"
)

// ErrInvalidSessionRow is returned for session list rows without both columns.
var ErrInvalidSessionRow = errors.New("session list row needs subject and session columns")

// LoadSessionList reads a session list file.
func LoadSessionList(path string) ([]primary.SessionRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session list: %w", err)
	}
	defer f.Close()

	sessions, err := ReadSessionList(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sessions, nil
}

// ReadSessionList parses "subject,session" rows. Blank lines and lines
// starting with '#' are skipped; "sub-" and "ses-" prefixes are stripped.
func ReadSessionList(r io.Reader) ([]primary.SessionRef, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var sessions []primary.SessionRef
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse session list: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if len(row) < 2 {
			return nil, fmt.Errorf("line %d: %w", line, ErrInvalidSessionRow)
		}

		ref := primary.SessionRef{
			Subject: strings.TrimPrefix(strings.TrimSpace(row[0]), "sub-"),
			Session: strings.TrimPrefix(strings.TrimSpace(row[1]), "ses-"),
		}
		if ref.Subject == "" || ref.Session == "" {
			return nil, fmt.Errorf("line %d: %w", line, ErrInvalidSessionRow)
		}
		sessions = append(sessions, ref)
	}
	return sessions, nil
}
