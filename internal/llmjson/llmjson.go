// Package llmjson parses JSON arrays out of language-model responses.
// Malformed output is a routine failure mode, not an exceptional one: the
// parser strips markdown fences, falls back to locating the first bracketed
// array, and reports failures as an error carrying a bounded excerpt so the
// caller can log and move on.
package llmjson

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// excerptLen bounds how much offending text a parse error carries.
const excerptLen = 200

// Array extracts a JSON array from model output. On any failure it returns a
// nil slice and an error describing the first ~200 characters of the text;
// it never panics and never returns a partial parse.
func Array(text string) ([]json.RawMessage, error) {
	s := stripFences(strings.TrimSpace(text))
	if s == "" {
		return nil, eris.New("llmjson: empty response")
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		return arr, nil
	}

	// Full-text parse failed; locate the first top-level bracketed array by
	// depth counting and parse only that substring.
	sub := firstArray(s)
	if sub == "" {
		return nil, eris.Errorf("llmjson: no array found in %q", excerpt(s))
	}
	if err := json.Unmarshal([]byte(sub), &arr); err != nil {
		return nil, eris.Wrapf(err, "llmjson: parse %q", excerpt(sub))
	}
	return arr, nil
}

// Decode parses a single element of an Array result into v.
func Decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return eris.Wrapf(err, "llmjson: decode %q", excerpt(string(raw)))
	}
	return nil
}

// stripFences removes a leading markdown fence line and a trailing fence.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// firstArray returns the first top-level [...] substring, or "".
func firstArray(s string) string {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func excerpt(s string) string {
	if len(s) > excerptLen {
		return s[:excerptLen]
	}
	return s
}
