package advice

import (
	"regexp"
	"strings"
)

var (
	thinkBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)
	xmlTag     = regexp.MustCompile(`</?\w+[^>]*>`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// Sanitize removes reasoning blocks and stray XML-like tags from model output
// and collapses runs of blank lines.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	s := thinkBlock.ReplaceAllString(text, "")
	s = xmlTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
