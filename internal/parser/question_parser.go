package parser

import (
	"regexp"
	"strings"
)

// listMarker matches a leading bullet, checkbox or number prefix:
// "- ", "* ", "• ", "[ ] ", "[x] ", "1. ", "1) "
var listMarker = regexp.MustCompile(`^(?:[-*•]\s+|\[[ xX]?\]\s*|\d+[.)]\s+)`)

// ParseQuestions splits pasted text into one question per line.
// List markers are stripped and blank lines dropped, so a copied
// markdown checklist turns into a clean question list.
func ParseQuestions(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	questions := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		// "- [ ] task" carries two markers
		for i := 0; i < 2; i++ {
			line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		}
		if line != "" {
			questions = append(questions, line)
		}
	}
	return questions
}

// FormatQuestions renders questions one per line for editing
func FormatQuestions(questions []string) string {
	return strings.Join(questions, "\n")
}
