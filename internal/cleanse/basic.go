package cleanse

import (
	"regexp"
	"strings"
)

// Markdown noise patterns stripped by the regex strategy, applied in order.
var (
	imageMarkdown = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	inlineLink    = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	navLine       = regexp.MustCompile(`(?m)^[-\s]*\[.*?\]\([^)]*\)\s*[-\s]*`)
	horizontalBar = regexp.MustCompile(`[-=]{3,}`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Basic strips scraped-page noise with regular expressions: image markdown,
// inline links (keeping the link text), navigation-style lines and horizontal
// rules, then collapses whitespace. It never fails and is the fallback when a
// model is unavailable.
func Basic(content string) string {
	content = imageMarkdown.ReplaceAllString(content, "")
	content = inlineLink.ReplaceAllString(content, "$1")
	content = navLine.ReplaceAllString(content, "")
	content = horizontalBar.ReplaceAllString(content, "")
	content = whitespaceRun.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}
