package summary

import (
	"regexp"
	"strings"
)

var (
	boldRe   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe = regexp.MustCompile(`\*(.*?)\*`)
)

// ConvertMarkdown renders the restricted markdown subset the model emits as
// HTML: **bold**, *italic* and newlines. Bold must be rewritten before
// italic, and any asterisks left over afterwards are stripped.
func ConvertMarkdown(text string) string {
	if text == "" {
		return text
	}

	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")
	text = strings.ReplaceAll(text, "\n", "<br>")

	return strings.ReplaceAll(text, "*", "")
}
