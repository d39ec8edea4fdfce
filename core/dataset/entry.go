package dataset

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Type is the declared format of an entry's content.
type Type string

const (
	TypeText Type = "text"
	TypeCSV  Type = "csv"
	TypeJSON Type = "json"
)

// ParseType maps s onto one of the supported types; anything else is text.
func ParseType(s string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeCSV:
		return TypeCSV
	case TypeJSON:
		return TypeJSON
	default:
		return TypeText
	}
}

// TypeFromName infers a type from a file name or URL path extension.
func TypeFromName(name string) Type {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv":
		return TypeCSV
	case ".json", ".jsonl", ".ndjson":
		return TypeJSON
	default:
		return TypeText
	}
}

// Entry is one piece of data handed to every agent of a run.
type Entry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Type    Type   `json:"type"`
	Content string `json:"content"`
	// Source is the file path or URL the entry was loaded from, if any.
	Source string `json:"source,omitempty"`
}

// NewEntry creates an entry with a fresh id.
func NewEntry(title string, typ Type, content string) Entry {
	return Entry{
		ID:      "input-" + uuid.NewString(),
		Title:   title,
		Type:    ParseType(string(typ)),
		Content: content,
	}
}
