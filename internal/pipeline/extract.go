package pipeline

import (
	"regexp"
	"strings"
)

// DefaultDiagramLanguage is the fence language treated as diagram source.
const DefaultDiagramLanguage = "mermaid"

// Precompiled extraction patterns.
var (
	// $$...$$ across lines, non-greedy
	blockMathDollar = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)

	// \[...\] across lines, non-greedy
	blockMathBracket = regexp.MustCompile(`(?s)\\\[(.+?)\\\]`)

	// \(...\) non-greedy
	inlineMathParen = regexp.MustCompile(`(?s)\\\((.+?)\\\)`)

	// Leading quote marker on any line of a block formula
	quoteMarker = regexp.MustCompile(`(?m)^> ?`)
)

// latexCommands triggers bare-line formula detection. The list and its order
// are fixed; prose mentioning \log or \sin on a line of its own is a known
// false positive.
var latexCommands = []string{
	`\sum`, `\frac`, `\int`, `\prod`, `\sqrt`,
	`\alpha`, `\beta`, `\gamma`, `\delta`, `\theta`,
	`\log`, `\ln`, `\sin`, `\cos`, `\tan`,
	`\lim`, `\infty`, `\partial`, `\nabla`,
}

// diagramFencePattern compiles the fence matcher for a diagram language.
func diagramFencePattern(lang string) *regexp.Regexp {
	return regexp.MustCompile("(?s)```" + regexp.QuoteMeta(lang) + "\\s*\\n(.+?)\\n```")
}

// blockToken pads a token so the renderer sees it as a paragraph of its own.
func blockToken(token string) string {
	return "\n\n" + token + "\n\n"
}

// ExtractDiagrams replaces fenced diagram blocks with diagram tokens.
// The payload is the fence body with surrounding whitespace trimmed.
func ExtractDiagrams(content string, fence *regexp.Regexp, v *Vault) string {
	return fence.ReplaceAllStringFunc(content, func(match string) string {
		body := fence.FindStringSubmatch(match)[1]
		return blockToken(v.Save(KindDiagram, strings.TrimSpace(body)))
	})
}

// saveBlockMath stores a block formula with quote markers stripped.
func saveBlockMath(formula string, v *Vault) string {
	formula = quoteMarker.ReplaceAllString(formula, "")
	return blockToken(v.Save(KindMathBlock, formula))
}

// ExtractDollarBlocks replaces $$...$$ formulas with block tokens.
func ExtractDollarBlocks(content string, v *Vault) string {
	return blockMathDollar.ReplaceAllStringFunc(content, func(match string) string {
		return saveBlockMath(match, v)
	})
}

// ExtractBracketBlocks replaces \[...\] formulas with block tokens.
func ExtractBracketBlocks(content string, v *Vault) string {
	return blockMathBracket.ReplaceAllStringFunc(content, func(match string) string {
		return saveBlockMath(match, v)
	})
}

// ExtractParenInline replaces \(...\) formulas with inline tokens.
func ExtractParenInline(content string, v *Vault) string {
	return inlineMathParen.ReplaceAllStringFunc(content, func(match string) string {
		return v.Save(KindMathInline, match)
	})
}

// ExtractDollarInline replaces $...$ formulas with inline tokens. A '$'
// touching another '$' never opens or closes a formula, and a formula never
// spans a line break. RE2 has no lookaround, so this is a scanner.
func ExtractDollarInline(content string, v *Vault) string {
	var b strings.Builder
	b.Grow(len(content))

	last := 0
	for i := 0; i < len(content); i++ {
		if content[i] != '$' {
			continue
		}
		if i > 0 && content[i-1] == '$' {
			continue
		}
		if i+1 < len(content) && content[i+1] == '$' {
			continue
		}

		// The closing delimiter is the next '$' on the same line.
		end := strings.IndexAny(content[i+1:], "$\n")
		if end <= 0 {
			continue
		}
		j := i + 1 + end
		if content[j] != '$' {
			continue
		}
		if j+1 < len(content) && content[j+1] == '$' {
			continue
		}

		b.WriteString(content[last:i])
		b.WriteString(v.Save(KindMathInline, content[i:j+1]))
		last = j + 1
		i = j
	}

	if last == 0 {
		return content
	}
	b.WriteString(content[last:])
	return b.String()
}

// ExtractBareLatexLines treats lines carrying LaTeX commands without
// delimiters as block formulas wrapped in \[...\]. Headings, list items and
// quotes are left alone.
func ExtractBareLatexLines(content string, v *Vault) string {
	lines := strings.Split(content, "\n")
	changed := false

	for i, line := range lines {
		if !isBareLatexLine(line) {
			continue
		}
		lines[i] = saveBlockMath(`\[`+line+`\]`, v)
		changed = true
	}

	if !changed {
		return content
	}
	return strings.Join(lines, "\n")
}

// isBareLatexLine reports whether a line qualifies for heuristic detection.
func isBareLatexLine(line string) bool {
	stripped := strings.TrimLeft(line, " \t")
	if stripped == "" {
		return false
	}
	switch stripped[0] {
	case '#', '-', '*', '+', '>':
		return false
	}
	for _, cmd := range latexCommands {
		if strings.Contains(stripped, cmd) {
			return true
		}
	}
	return false
}

// ExtractMath runs the math sub-passes in their fixed order. Double-dollar
// must run before single-dollar, and delimited passes before the heuristic.
func ExtractMath(content string, v *Vault) string {
	content = ExtractDollarBlocks(content, v)
	content = ExtractBracketBlocks(content, v)
	content = ExtractParenInline(content, v)
	content = ExtractDollarInline(content, v)
	content = ExtractBareLatexLines(content, v)
	return content
}
