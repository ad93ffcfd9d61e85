package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/markinote/markinote/internal/htmldom"
)

// abbrDefinition matches "*[ABBR]: Full text" definition lines.
var abbrDefinition = regexp.MustCompile(`(?m)^\*\[([^\]\n]+)\]:[ \t]*(.*)\n?`)

// abbreviation is one parsed definition with its word-bounded matcher.
type abbreviation struct {
	term    string
	title   string
	pattern *regexp.Regexp
}

// extractAbbreviations removes abbreviation definition lines from content
// and returns them, longest term first so overlapping terms prefer the
// longer match.
func extractAbbreviations(content string) (string, []abbreviation) {
	matches := abbrDefinition.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return content, nil
	}

	seen := make(map[string]int, len(matches))
	var abbrs []abbreviation
	for _, m := range matches {
		term := strings.TrimSpace(m[1])
		if term == "" {
			continue
		}
		a := abbreviation{
			term:    term,
			title:   strings.TrimSpace(m[2]),
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`),
		}
		// Later definitions win.
		if i, ok := seen[term]; ok {
			abbrs[i] = a
			continue
		}
		seen[term] = len(abbrs)
		abbrs = append(abbrs, a)
	}

	sort.SliceStable(abbrs, func(i, j int) bool {
		return len(abbrs[i].term) > len(abbrs[j].term)
	})

	return abbrDefinition.ReplaceAllString(content, ""), abbrs
}

// applyAbbreviations wraps defined terms in text nodes with <abbr> elements.
// Code, preformatted text and existing abbreviations are left alone.
func applyAbbreviations(htmlContent string, abbrs []abbreviation) (string, error) {
	if len(abbrs) == 0 {
		return htmlContent, nil
	}

	doc, err := htmldom.Parse(htmlContent)
	if err != nil {
		return "", err
	}

	htmldom.Walk(doc.Root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Code, atom.Pre, atom.Abbr, atom.Script, atom.Style:
				return false
			}
			return true
		}
		if n.Type == html.TextNode && n.Parent != nil {
			splitAbbreviations(n, abbrs)
			return false
		}
		return true
	})

	return doc.Render()
}

// splitAbbreviations replaces a text node with text and <abbr> nodes.
func splitAbbreviations(n *html.Node, abbrs []abbreviation) {
	text := n.Data
	type hit struct {
		start, end int
		abbr       *abbreviation
	}

	var hits []hit
	taken := make([]bool, len(text))
	for i := range abbrs {
		a := &abbrs[i]
		for _, loc := range a.pattern.FindAllStringIndex(text, -1) {
			overlap := false
			for k := loc[0]; k < loc[1]; k++ {
				if taken[k] {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}
			for k := loc[0]; k < loc[1]; k++ {
				taken[k] = true
			}
			hits = append(hits, hit{start: loc[0], end: loc[1], abbr: a})
		}
	}
	if len(hits) == 0 {
		return
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	parent := n.Parent
	last := 0
	for _, h := range hits {
		if h.start > last {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[last:h.start]}, n)
		}
		el := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Abbr,
			Data:     "abbr",
			Attr:     []html.Attribute{{Key: "title", Val: h.abbr.title}},
		}
		el.AppendChild(&html.Node{Type: html.TextNode, Data: text[h.start:h.end]})
		parent.InsertBefore(el, n)
		last = h.end
	}
	if last < len(text) {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[last:]}, n)
	}
	parent.RemoveChild(n)
}
