// Package classifier decides whether a pull request comment carries real content.
package classifier

import (
	"strings"
	"unicode/utf8"
)

// Acknowledgements that never count, compared after trimming and lower-casing.
var simpleResponses = []string{"👍", ":+1:", "수고하셨습니다.", "수고하셨습니다!"}

// IsSubstantive reports whether a comment body is more than a short acknowledgement.
// Length is measured in runes.
func IsSubstantive(body string) bool {
	clean := strings.ToLower(strings.TrimSpace(body))
	length := utf8.RuneCountInString(clean)

	if length < 10 {
		return false
	}

	for _, response := range simpleResponses {
		if clean == response {
			return false
		}
	}

	if strings.Contains(clean, "```") || strings.Contains(clean, "http") || length > 50 {
		return true
	}

	return length > 10
}
