package model

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject pulls the first balanced JSON object out of free-form
// completion text. Models often wrap their JSON in prose or markdown fences;
// callers that asked for a JSON answer use this before unmarshalling.
// Returns false when no valid object is present.
func ExtractJSONObject(text string) ([]byte, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false

		for i := start; i < len(text); i++ {
			c := text[i]

			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}

			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := []byte(text[start : i+1])
					if json.Valid(candidate) {
						return candidate, true
					}
					i = len(text)
				}
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start = start + 1 + next
	}

	return nil, false
}
