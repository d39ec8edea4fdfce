package slogobs

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestHandler_Compact_PreservesAttributeOrder verifies compact output keeps
// attributes in the order they were logged.
func TestHandler_Compact_PreservesAttributeOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&HandlerOptions{Format: FormatCompact, Output: &buf}))

	logger.Info("phase started", "b", 1, "a", "x")

	line := buf.String()
	if !strings.Contains(line, `INFO  phase started -> {"b":1,"a":"x"}`) {
		t.Errorf("unexpected compact line %q", line)
	}
}

func TestHandler_WithGroup_PrefixesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&HandlerOptions{Format: FormatCompact, Output: &buf}))

	logger.WithGroup("store").Info("saved", "id", "p1")

	if !strings.Contains(buf.String(), `"store.id":"p1"`) {
		t.Errorf("expected grouped key, got %q", buf.String())
	}
}

func TestHandler_Pretty_OneLinePerAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&HandlerOptions{Format: FormatPretty, Output: &buf}))

	logger.Warn("slow agent", "agent", "Validator", "phase", 2)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "agent = Validator") {
		t.Errorf("unexpected attribute line %q", lines[1])
	}
}

func TestParseFormat_Unknown_DefaultsToCompact(t *testing.T) {
	tests := map[string]Format{
		"json":    FormatJSON,
		" Pretty": FormatPretty,
		"xml":     FormatCompact,
		"":        FormatCompact,
	}
	for input, want := range tests {
		if got := ParseFormat(input); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestGetLogLevelFromEnv_PrefersStageflowVariable(t *testing.T) {
	t.Setenv("STAGEFLOW_LOG_LEVEL", "debug")
	t.Setenv("LOG_LEVEL", "error")

	if got := GetLogLevelFromEnv(); got != slog.LevelDebug {
		t.Errorf("expected DEBUG, got %v", got)
	}
}

func TestParseLogLevel_Trace_BelowDebug(t *testing.T) {
	if got := ParseLogLevel("trace"); got >= slog.LevelDebug {
		t.Errorf("expected trace below debug, got %v", got)
	}
	if got := levelString(ParseLogLevel("trace")); got != "TRACE" {
		t.Errorf("expected TRACE label, got %q", got)
	}
}
