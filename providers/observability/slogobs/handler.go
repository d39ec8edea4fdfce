package slogobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler is a slog.Handler writing compact, pretty or JSON records.
// Attributes keep the order in which they were added.
type Handler struct {
	format Format
	level  slog.Level
	colors bool
	prefix string
	attrs  []slog.Attr

	mu     *sync.Mutex
	output io.Writer
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Format Format
	Level  slog.Level
	// Output defaults to os.Stderr.
	Output io.Writer
	// Colors enables ANSI colors. When false and Output is a terminal,
	// colors are switched on anyway for non-JSON formats.
	Colors bool
}

// NewHandler creates a Handler. A nil opts selects compact output on stderr.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	format := opts.Format
	if format == "" {
		format = FormatCompact
	}
	colors := opts.Colors
	if !colors && format != FormatJSON {
		if f, ok := output.(*os.File); ok {
			colors = isTerminal(f)
		}
	}
	return &Handler{
		format: format,
		level:  opts.Level,
		colors: colors,
		mu:     &sync.Mutex{},
		output: output,
	}
}

// Enabled reports whether records at level are written.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle renders r in the configured format.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	attrs := h.collect(r)

	var line []byte
	var err error
	switch h.format {
	case FormatJSON:
		line, err = h.renderJSON(r, attrs)
	case FormatPretty:
		line = h.renderPretty(r, attrs)
	default:
		line = h.renderCompact(r, attrs)
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.output.Write(line)
	return err
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, attr := range attrs {
		attr.Key = h.prefix + attr.Key
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

// WithGroup returns a handler that prefixes subsequent keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

type keyValue struct {
	key   string
	value any
}

func (h *Handler) collect(r slog.Record) []keyValue {
	out := make([]keyValue, 0, len(h.attrs)+r.NumAttrs())
	for _, attr := range h.attrs {
		out = append(out, keyValue{key: attr.Key, value: attr.Value.Any()})
	}
	r.Attrs(func(attr slog.Attr) bool {
		out = append(out, keyValue{key: h.prefix + attr.Key, value: attr.Value.Any()})
		return true
	})
	return out
}

func (h *Handler) levelLabel(level slog.Level, width int) string {
	label := fmt.Sprintf("%-*s", width, levelString(level))
	if !h.colors {
		return label
	}
	return colorForLevel(level) + label + colorReset
}

func (h *Handler) renderCompact(r slog.Record, attrs []keyValue) []byte {
	var b strings.Builder
	b.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	b.WriteByte(' ')
	b.WriteString(h.levelLabel(r.Level, 5))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	if len(attrs) > 0 {
		b.WriteString(" -> ")
		b.Write(encodeAttrs(attrs))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func (h *Handler) renderPretty(r slog.Record, attrs []keyValue) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | %s\n", r.Time.Format("2006-01-02 15:04:05"), h.levelLabel(r.Level, 5), r.Message)
	for _, kv := range attrs {
		fmt.Fprintf(&b, "    %s = %v\n", kv.key, kv.value)
	}
	return []byte(b.String())
}

func (h *Handler) renderJSON(r slog.Record, attrs []keyValue) ([]byte, error) {
	record := map[string]any{
		"time":  r.Time.Format("2006-01-02T15:04:05"),
		"level": levelString(r.Level),
		"msg":   r.Message,
	}
	for _, kv := range attrs {
		record[kv.key] = jsonSafe(kv.value)
	}
	line, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

// encodeAttrs renders attrs as a JSON object preserving their order.
func encodeAttrs(attrs []keyValue) []byte {
	var b strings.Builder
	b.WriteByte('{')
	for i, kv := range attrs {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(kv.key)
		b.Write(key)
		b.WriteByte(':')
		value, err := json.Marshal(jsonSafe(kv.value))
		if err != nil {
			value, _ = json.Marshal(fmt.Sprint(kv.value))
		}
		b.Write(value)
	}
	b.WriteByte('}')
	return []byte(b.String())
}

// jsonSafe turns values encoding/json renders poorly into strings.
func jsonSafe(value any) any {
	switch v := value.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return value
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func colorForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return colorGray
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
