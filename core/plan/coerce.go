package plan

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonSlugRun    = regexp.MustCompile(`[^a-z0-9]+`)
	embeddedNum   = regexp.MustCompile(`\d+`)
	refDelimiters = regexp.MustCompile(`[,;\n]`)
)

// slugify lowercases s, collapses every run of characters outside [a-z0-9]
// into one hyphen and strips leading and trailing hyphens.
func slugify(s string) string {
	return strings.Trim(nonSlugRun.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// present reports whether a decoded JSON value counts as set.
func present(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

// firstPresent returns the first set value among keys of item.
func firstPresent(item map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := item[key]; ok && present(value) {
			return value, true
		}
	}
	return nil, false
}

// scalarString renders strings and numbers; other kinds yield "".
func scalarString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// stringField returns the first set string among keys, trimmed.
func stringField(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := item[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// parseNumber reads a JSON number or a numeric string. Other strings yield
// their first run of digits, so "Stage 2.5" reads as 2.
func parseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n, true
		}
		if match := embeddedNum.FindString(s); match != "" {
			n, err := strconv.ParseFloat(match, 64)
			return n, err == nil
		}
	}
	return 0, false
}

// descriptive reports whether value is a string that is not itself a number,
// such as "Discovery" or "Stage 2".
func descriptive(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return "", false
	}
	return s, true
}

// refObjectKeys are tried in order to pull a reference out of an object.
var refObjectKeys = []string{"id", "target", "to", "nodeId", "name", "label"}

// collectRefs flattens reference values into a deduplicated list. A value
// may be a string (split on commas, semicolons and newlines), a number, an
// object carrying one of refObjectKeys, or an array of any of these.
// Empty strings, zero, false and null are skipped.
func collectRefs(values ...any) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return
		}
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}

	var walk func(value any)
	walk = func(value any) {
		switch v := value.(type) {
		case string:
			for _, part := range refDelimiters.Split(v, -1) {
				add(part)
			}
		case float64:
			if v != 0 {
				add(scalarString(v))
			}
		case int:
			if v != 0 {
				add(strconv.Itoa(v))
			}
		case map[string]any:
			if ref, ok := firstPresent(v, refObjectKeys...); ok {
				add(scalarString(ref))
			}
		case []any:
			for _, element := range v {
				walk(element)
			}
		case []string:
			for _, element := range v {
				walk(element)
			}
		}
	}
	for _, value := range values {
		walk(value)
	}
	return out
}
