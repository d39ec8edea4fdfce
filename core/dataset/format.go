package dataset

import (
	"fmt"
	"strings"

	"github.com/leofalp/stageflow/internal/utils"
)

const (
	// EmptyNotice replaces the data block when a run carries no entries.
	EmptyNotice = "User did not attach additional datasets."

	// DefaultContentLimit bounds each entry's content inside a prompt.
	DefaultContentLimit = 600
)

// Format renders entries as a numbered list:
//
//	1. Sales Q3 [csv]
//	region,revenue
//	...
//
// Each content body is truncated to limit runes (DefaultContentLimit when
// limit <= 0). Entries are separated by a blank line.
func Format(entries []Entry, limit int) string {
	if len(entries) == 0 {
		return EmptyNotice
	}
	if limit <= 0 {
		limit = DefaultContentLimit
	}

	blocks := make([]string, 0, len(entries))
	for i, entry := range entries {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = fmt.Sprintf("Input %d", i+1)
		}
		blocks = append(blocks, fmt.Sprintf("%d. %s [%s]\n%s",
			i+1, title, ParseType(string(entry.Type)), utils.Truncate(strings.TrimSpace(entry.Content), limit)))
	}
	return strings.Join(blocks, "\n\n")
}
