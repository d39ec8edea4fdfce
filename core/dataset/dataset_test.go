package dataset

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType_Table(t *testing.T) {
	tests := map[string]Type{
		"csv":   TypeCSV,
		" JSON": TypeJSON,
		"text":  TypeText,
		"xlsx":  TypeText,
		"":      TypeText,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseType(input), "input %q", input)
	}
}

func TestTypeFromName_Extensions(t *testing.T) {
	assert.Equal(t, TypeCSV, TypeFromName("sales.CSV"))
	assert.Equal(t, TypeJSON, TypeFromName("/tmp/events.jsonl"))
	assert.Equal(t, TypeText, TypeFromName("notes.md"))
	assert.Equal(t, TypeText, TypeFromName("README"))
}

// TestFormat_Entries_NumberedWithTypes checks the prompt rendering of a
// data block, including truncation of long content.
func TestFormat_Entries_NumberedWithTypes(t *testing.T) {
	entries := []Entry{
		{Title: "Sales", Type: TypeCSV, Content: "region,revenue\nEU,10\n"},
		{Title: "", Type: "weird", Content: strings.Repeat("x", 20)},
	}

	got := Format(entries, 10)

	want := "1. Sales [csv]\nregion,...\n\n2. Input 2 [text]\nxxxxxxx..."
	assert.Equal(t, want, got)
}

func TestFormat_NoEntries_ReturnsNotice(t *testing.T) {
	assert.Equal(t, EmptyNotice, Format(nil, 0))
}

func TestNewEntry_AssignsUniqueIDs(t *testing.T) {
	a := NewEntry("a", TypeText, "x")
	b := NewEntry("b", TypeText, "y")
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, strings.HasPrefix(a.ID, "input-"))
}

func TestFromFile_CSV_KeepsTypeAndTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.csv")
	require.NoError(t, os.WriteFile(path, []byte("metric,value\nA,1\n"), 0o600))

	entry, err := FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "metrics", entry.Title)
	assert.Equal(t, TypeCSV, entry.Type)
	assert.Equal(t, path, entry.Source)
	assert.Contains(t, entry.Content, "A,1")
}

// TestFromFile_HTML_ConvertedToMarkdown verifies HTML sources reach the
// prompt as markdown text.
func TestFromFile_HTML_ConvertedToMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brief.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body><h1>Brief</h1><p>Cut <strong>churn</strong>.</p></body></html>"), 0o600))

	entry, err := FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, TypeText, entry.Type)
	assert.Contains(t, entry.Content, "# Brief")
	assert.Contains(t, entry.Content, "**churn**")
	assert.NotContains(t, entry.Content, "<p>")
}

func TestFromFile_Empty_ReturnsErrEmptySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := FromFile(path)
	assert.True(t, errors.Is(err, ErrEmptySource), "got %v", err)
}

func TestFromFile_Missing_ReturnsError(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestFromURL_HTMLPage_ConvertedToMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<h2>Market</h2><ul><li>growing</li></ul>")
	}))
	defer server.Close()

	entry, err := FromURL(context.Background(), server.Client(), server.URL+"/report")
	require.NoError(t, err)

	assert.Equal(t, "report", entry.Title)
	assert.Equal(t, TypeText, entry.Type)
	assert.Contains(t, entry.Content, "## Market")
	assert.Contains(t, entry.Content, "growing")
}

func TestFromURL_JSONContentType_TypedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"visits": 10}`)
	}))
	defer server.Close()

	entry, err := FromURL(context.Background(), server.Client(), server.URL+"/stats")
	require.NoError(t, err)
	assert.Equal(t, TypeJSON, entry.Type)
}

func TestFromURL_NotFound_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := FromURL(context.Background(), server.Client(), server.URL+"/missing")
	assert.Error(t, err)
}

func TestFromURL_BadScheme_ReturnsError(t *testing.T) {
	_, err := FromURL(context.Background(), nil, "ftp://example.com/file.csv")
	assert.Error(t, err)
}
