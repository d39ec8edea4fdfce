package utils

import (
	"encoding/json"
	"unicode/utf8"
)

// Ellipsis marks text cut by Truncate.
const Ellipsis = "..."

// Truncate shortens s to at most limit runes. When it cuts, the result ends in
// "..." and still fits in limit. A limit of zero or less returns s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= len(Ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(Ellipsis)]) + Ellipsis
}

// TruncateHead keeps the last limit runes of s, marking the cut with a leading
// "...". It is used where the most recent text matters more than the oldest.
func TruncateHead(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= len(Ellipsis) {
		return string(runes[len(runes)-limit:])
	}
	return Ellipsis + string(runes[len(runes)-(limit-len(Ellipsis)):])
}

// JSONToString renders object as JSON, pretty-printed when indent is true.
// Marshal failures come back as a JSON error object so the result is always
// printable.
func JSONToString(object any, indent ...bool) string {
	var encoded []byte
	var err error
	if len(indent) > 0 && indent[0] {
		encoded, err = json.MarshalIndent(object, "", "  ")
	} else {
		encoded, err = json.Marshal(object)
	}
	if err != nil {
		return `{"error": "failed to marshal to JSON: ` + err.Error() + `"}`
	}
	return string(encoded)
}
