package util

import "strings"

// StripCodeFences removes markdown fence markers (```json and bare ```)
// wherever they occur and trims surrounding whitespace. Content between the
// markers is left as is, so applying it twice gives the same result.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
