package pipeline

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// tocMarker is the paragraph goldmark emits for a "[TOC]" line.
const tocMarker = "<p>[TOC]</p>"

// headingPattern matches h1-h6 tags with id attribute.
// Captures: 1=level, 2=id, 3=inner HTML (may contain inline tags)
var headingPattern = regexp.MustCompile(`(?is)<h([1-6])[^>]*\bid="([^"]*)"[^>]*>(.*?)</h[1-6]>`)

// htmlTagPattern matches HTML tags for stripping from heading text.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// headingInfo represents an extracted heading from HTML.
type headingInfo struct {
	Level int    // 1-6
	ID    string // anchor ID
	Text  string // heading text content
}

// stripHTMLTags removes tags and decodes entities so the text can be
// escaped once when written back out.
func stripHTMLTags(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

// extractHeadings returns the headings of the rendered HTML in order.
// Headings without IDs are skipped.
func extractHeadings(htmlContent string) []headingInfo {
	matches := headingPattern.FindAllStringSubmatch(htmlContent, -1)
	if len(matches) == 0 {
		return nil
	}

	headings := make([]headingInfo, 0, len(matches))
	for _, m := range matches {
		level, _ := strconv.Atoi(m[1])
		headings = append(headings, headingInfo{
			Level: level,
			ID:    m[2],
			Text:  stripHTMLTags(m[3]),
		})
	}
	return headings
}

// depthTracker maps heading levels to nesting depths. The shallowest first
// heading becomes depth 1 and skipped levels collapse into a direct child.
type depthTracker struct {
	minLevelSeen int
	lastDepth    int
}

// next returns the nesting depth for a heading level.
func (d *depthTracker) next(level int) int {
	if d.minLevelSeen == 0 {
		d.minLevelSeen = level
	}
	depth := level - d.minLevelSeen + 1
	if depth < 1 {
		depth = 1
	}
	// H1 -> H3 becomes depth 1 -> depth 2
	if d.lastDepth > 0 && depth > d.lastDepth+1 {
		depth = d.lastDepth + 1
	}
	d.lastDepth = depth
	return depth
}

// generateTOC builds a nested list of links to the given headings.
func generateTOC(headings []headingInfo) string {
	if len(headings) == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString(`<div class="toc">` + "\n")

	var tracker depthTracker
	open := 0
	for i, h := range headings {
		depth := tracker.next(h.Level)

		switch {
		case depth > open:
			for ; open < depth; open++ {
				buf.WriteString("<ul>\n")
				if open+1 < depth {
					buf.WriteString("<li>")
				}
			}
		case i > 0:
			buf.WriteString("</li>\n")
			for ; open > depth; open-- {
				buf.WriteString("</ul>\n</li>\n")
			}
		}

		buf.WriteString(`<li><a href="#`)
		buf.WriteString(html.EscapeString(h.ID))
		buf.WriteString(`">`)
		buf.WriteString(html.EscapeString(h.Text))
		buf.WriteString(`</a>`)
	}

	buf.WriteString("</li>\n")
	for ; open > 1; open-- {
		buf.WriteString("</ul>\n</li>\n")
	}
	buf.WriteString("</ul>\n</div>")
	return buf.String()
}

// injectTOC replaces every [TOC] paragraph with the generated contents.
// Without a marker or headings the HTML is returned unchanged.
func injectTOC(htmlContent string) string {
	if !strings.Contains(htmlContent, tocMarker) {
		return htmlContent
	}
	toc := generateTOC(extractHeadings(htmlContent))
	if toc == "" {
		return htmlContent
	}
	return strings.ReplaceAll(htmlContent, tocMarker, toc)
}
