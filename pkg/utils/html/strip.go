// ABOUTME: HTML text utilities for normalizing extracted page text
// ABOUTME: Collapses whitespace and decodes entities left in text nodes

package html

import (
	stdhtml "html"
	"strings"
	"unicode"
)

// NormalizeText decodes entities and collapses runs of whitespace to single spaces
func NormalizeText(text string) string {
	text = stdhtml.UnescapeString(text)
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}

// NormalizeBlocks keeps paragraph breaks between non-empty blocks
func NormalizeBlocks(blocks []string) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b = NormalizeText(b); b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}

// ContainsFold reports whether substr is within s, ignoring case
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
