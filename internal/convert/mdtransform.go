package convert

import (
	"regexp"
	"strings"
)

// Highlight placeholders use Unicode Private Use Area characters. They pass
// through goldmark unchanged, so ==text== can become <mark> without
// enabling raw HTML.
const (
	markStart = "\uE000"
	markEnd   = "\uE001"
)

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	highlightPattern   = regexp.MustCompile(`==([^=\n]+?)==`)
	fencePattern       = regexp.MustCompile("(?m)^ {0,3}(```|~~~)")
)

// preprocessMarkdown normalizes line endings, compresses blank lines and
// turns ==text== outside fenced code into highlight placeholders.
func preprocessMarkdown(content string) string {
	content = crlfOrCR.ReplaceAllString(content, "\n")
	content = convertHighlights(content)
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// convertHighlights replaces ==text== with placeholders, leaving fenced code
// blocks alone.
func convertHighlights(content string) string {
	fences := fencePattern.FindAllStringIndex(content, -1)
	if len(fences) == 0 {
		return highlightPattern.ReplaceAllString(content, markStart+"$1"+markEnd)
	}

	var b strings.Builder
	b.Grow(len(content))
	prev := 0
	for i := 0; i < len(fences); i += 2 {
		b.WriteString(highlightPattern.ReplaceAllString(content[prev:fences[i][0]], markStart+"$1"+markEnd))
		if i+1 >= len(fences) {
			// Unclosed fence runs to the end of the document.
			b.WriteString(content[fences[i][0]:])
			return b.String()
		}
		b.WriteString(content[fences[i][0]:fences[i+1][1]])
		prev = fences[i+1][1]
	}
	b.WriteString(highlightPattern.ReplaceAllString(content[prev:], markStart+"$1"+markEnd))
	return b.String()
}

// convertMarkPlaceholders turns placeholders back into <mark> tags after
// rendering.
func convertMarkPlaceholders(content string) string {
	return strings.NewReplacer(markStart, "<mark>", markEnd, "</mark>").Replace(content)
}
