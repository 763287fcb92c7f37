package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	ExportStatusBegin = "begin"
	ExportStatusEnd   = "end"
)

// ExportEntry is one element of an exported conversation file: the begin
// marker, a role/content pair, or the end marker. Exactly the fields relevant
// to the entry kind are set.
type ExportEntry struct {
	Username    string `json:"username,omitempty"`
	Title       string `json:"title,omitempty"`
	DateCreated string `json:"dateCreated,omitempty"`
	Status      string `json:"status,omitempty"`
	Role        string `json:"role,omitempty"`
	Content     string `json:"content,omitempty"`
}

// Exporter writes immutable conversation snapshots to a directory.
type Exporter struct {
	dir      string
	username string
}

func NewExporter(dir, username string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	return &Exporter{
		dir:      dir,
		username: username,
	}, nil
}

func (e *Exporter) Dir() string {
	return e.dir
}

// BuildExportRecord wraps the completed messages with begin/end markers,
// keeping role and content only. Every completed message is kept; the end
// marker is appended, never substituted for a real message.
func BuildExportRecord(messages []Message, username, title string, createdAt time.Time) []ExportEntry {
	record := []ExportEntry{{
		Username:    username,
		Title:       title,
		DateCreated: createdAt.Format(time.RFC3339),
		Status:      ExportStatusBegin,
	}}

	for _, msg := range messages {
		if msg.Status != StatusComplete {
			continue
		}
		record = append(record, ExportEntry{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	record = append(record, ExportEntry{Status: ExportStatusEnd})
	return record
}

// Export writes one conversation snapshot as a JSON file named from the
// title plus a generated id. Returns the path of the written file.
func (e *Exporter) Export(messages []Message, title string) (string, error) {
	record := BuildExportRecord(messages, e.username, title, time.Now())

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export record: %w", err)
	}

	prefix := SanitizeFilename(strings.Join(strings.Fields(title), "_"))
	filename := NewID(prefix) + ".json"
	path := filepath.Join(e.dir, filename)

	// 0600 - exports contain conversation content
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// SanitizeFilename removes or replaces characters that are invalid in filenames
func SanitizeFilename(name string) string {
	for _, bad := range []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " ", "\n", "\r"} {
		name = strings.ReplaceAll(name, bad, "-")
	}

	name = strings.Trim(name, "-.")

	if len(name) > 50 {
		name = name[:50]
	}

	if name == "" {
		name = "conversation"
	}

	return name
}
