package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/stageflow/internal/utils"
)

const (
	// MaxSourceSize caps how much of a file or page is read.
	MaxSourceSize = 5 * 1024 * 1024

	// DefaultFetchTimeout bounds FromURL when ctx has no deadline.
	DefaultFetchTimeout = 30 * time.Second

	userAgent = "stageflow/1.0 (+https://github.com/leofalp/stageflow)"
)

// ErrEmptySource is returned when a file or page has no usable content.
var ErrEmptySource = errors.New("stageflow: data source is empty")

// FromFile loads path as an entry titled after the file name. HTML files
// are converted to markdown and typed as text.
func FromFile(path string) (Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return Entry{}, fmt.Errorf("open data file: %w", err)
	}
	defer utils.CloseWithLog(file)

	entry, err := FromReader(filepath.Base(path), file)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", path, err)
	}
	entry.Source = path
	return entry, nil
}

// FromReader builds an entry from r. name supplies the title and, through
// its extension, the type.
func FromReader(name string, r io.Reader) (Entry, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxSourceSize))
	if err != nil {
		return Entry{}, fmt.Errorf("read data: %w", err)
	}

	typ := TypeFromName(name)
	content := string(raw)
	if isHTMLName(name) {
		if content, err = htmlToMarkdown(content); err != nil {
			return Entry{}, err
		}
		typ = TypeText
	}
	if strings.TrimSpace(content) == "" {
		return Entry{}, ErrEmptySource
	}

	title := strings.TrimSuffix(name, filepath.Ext(name))
	if title == "" {
		title = name
	}
	return NewEntry(title, typ, content), nil
}

// FromURL downloads rawURL and turns it into an entry. HTML responses are
// converted to markdown; CSV and JSON responses keep their type.
func FromURL(ctx context.Context, client *http.Client, rawURL string) (Entry, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Entry{}, fmt.Errorf("invalid data URL %q", rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultFetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxSourceSize))
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response body: %w", err)
	}

	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		name = parsed.Host
	}
	typ := TypeFromName(parsed.Path)
	content := string(raw)

	switch mediaType := resp.Header.Get("Content-Type"); {
	case strings.Contains(mediaType, "html") || isHTMLName(parsed.Path):
		if content, err = htmlToMarkdown(content); err != nil {
			return Entry{}, err
		}
		typ = TypeText
	case strings.Contains(mediaType, "csv"):
		typ = TypeCSV
	case strings.Contains(mediaType, "json"):
		typ = TypeJSON
	}
	if strings.TrimSpace(content) == "" {
		return Entry{}, ErrEmptySource
	}

	entry := NewEntry(strings.TrimSuffix(name, path.Ext(name)), typ, content)
	if entry.Title == "" {
		entry.Title = parsed.Host
	}
	entry.Source = resp.Request.URL.String()
	return entry, nil
}

func isHTMLName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

func htmlToMarkdown(html string) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return markdown, nil
}
