package pipeline

import (
	"regexp"
	"strings"
)

// canonicalIndent is the column step of one nesting level after normalization.
const canonicalIndent = 4

// bulletItem matches a bullet list marker at the start of a stripped line.
var bulletItem = regexp.MustCompile(`^[-*+]\s+`)

// ListLine is the list-relevant view of one source line.
type ListLine struct {
	Content       string
	LeadingSpaces int
	IsListItem    bool
}

// classifyLine derives the ListLine view of a line.
func classifyLine(line string) ListLine {
	return ListLine{
		Content:       line,
		LeadingSpaces: len(line) - len(strings.TrimLeft(line, " ")),
		IsListItem:    bulletItem.MatchString(strings.TrimSpace(line)),
	}
}

// NormalizeLists rewrites bullet list indentation so nesting levels are
// multiples of four columns relative to the outermost list, and inserts a
// blank line before a list item that directly follows a text line.
// Content without list items is returned unchanged.
func NormalizeLists(content string) string {
	rawLines := strings.Split(content, "\n")
	lines := make([]ListLine, len(rawLines))

	minIndent := -1
	twoSpaceNesting := false
	for i, raw := range rawLines {
		l := classifyLine(raw)
		lines[i] = l
		if !l.IsListItem {
			continue
		}
		if minIndent < 0 || l.LeadingSpaces < minIndent {
			minIndent = l.LeadingSpaces
		}
		if l.LeadingSpaces%4 == 2 {
			twoSpaceNesting = true
		}
	}

	if minIndent < 0 {
		return content
	}

	base := minIndent
	if minIndent >= canonicalIndent {
		base = canonicalIndent
	}

	out := make([]string, 0, len(lines))
	prevWasList := false
	for _, l := range lines {
		if !l.IsListItem {
			out = append(out, l.Content)
			prevWasList = false
			continue
		}

		relative := l.LeadingSpaces - minIndent
		if twoSpaceNesting {
			relative = (relative / 2) * canonicalIndent
		}
		line := strings.Repeat(" ", base+relative) + strings.TrimSpace(l.Content)

		if len(out) > 0 && !isBlankLine(out[len(out)-1]) && !prevWasList {
			out = append(out, "")
		}
		out = append(out, line)
		prevWasList = true
	}

	return strings.Join(out, "\n")
}

// isBlankLine returns true if the line is empty or contains only whitespace.
func isBlankLine(line string) bool {
	return strings.TrimSpace(line) == ""
}
