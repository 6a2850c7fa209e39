package ai

import (
	"encoding/json"
	"strings"

	"github.com/thywilljoshua/urdu-link/internal/domain"
)

// ParseTranslation decodes a {original, translated} answer. Anything that
// does not decode, or decodes without translated text, yields the
// placeholder with Malformed set.
func ParseTranslation(raw string) Translation {
	var out Translation
	js := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(js), &out); err != nil {
		out = Translation{}
		s := findFirstJSON(js)
		if s == "" || json.Unmarshal([]byte(s), &out) != nil {
			return Translation{Translated: domain.PlaceholderTranslation, Malformed: true}
		}
	}
	if strings.TrimSpace(out.Translated) == "" {
		return Translation{Original: out.Original, Translated: domain.PlaceholderTranslation, Malformed: true}
	}
	out.Translated = strings.TrimSpace(out.Translated)
	return out
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// findFirstJSON returns the first balanced {...} object in s, ignoring
// braces inside string literals.
func findFirstJSON(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
