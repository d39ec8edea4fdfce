package slogobs

import (
	"os"
	"strings"
)

// Format selects how the Handler renders records.
type Format string

const (
	// FormatCompact prints one line per record with JSON-encoded attributes.
	// Example: 2026-03-01 10:40:35 DEBUG agent started -> {"agent.name":"Planner"}
	FormatCompact Format = "compact"

	// FormatPretty prints the message followed by one indented line per attribute.
	FormatPretty Format = "pretty"

	// FormatJSON prints one JSON object per record.
	FormatJSON Format = "json"
)

// ParseFormat maps s to a Format, defaulting to FormatCompact.
func ParseFormat(s string) Format {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// GetFormatFromEnv reads STAGEFLOW_LOG_FORMAT, then LOG_FORMAT.
func GetFormatFromEnv() Format {
	if format := os.Getenv("STAGEFLOW_LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	return FormatCompact
}

func (f Format) String() string {
	return string(f)
}
