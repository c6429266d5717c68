// Package casing converts JSON object keys between camelCase and snake_case.
package casing

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
)

// ToSnake converts a camelCase or PascalCase identifier to snake_case.
// Acronyms stay together: "userID" -> "user_id", "HTTPServer" -> "http_server".
func ToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && needsBreak(runes, i) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func needsBreak(runes []rune, i int) bool {
	prev := runes[i-1]
	if prev == '_' {
		return false
	}
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	// end of an acronym followed by a new word: "HTTPServer" breaks before "S"
	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

// SnakeKeys rewrites every object key in a JSON document to snake_case.
// Values stored under a key listed in preserve (matched after conversion)
// are copied verbatim, so user-defined maps keep their own keys.
func SnakeKeys(data []byte, preserve ...string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	keep := make(map[string]struct{}, len(preserve))
	for _, key := range preserve {
		keep[ToSnake(key)] = struct{}{}
	}

	return json.Marshal(convert(doc, keep))
}

func convert(v any, keep map[string]struct{}) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			snake := ToSnake(key)
			if _, ok := keep[snake]; ok {
				out[snake] = value
				continue
			}
			out[snake] = convert(value, keep)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, value := range typed {
			out[i] = convert(value, keep)
		}
		return out
	default:
		return v
	}
}
