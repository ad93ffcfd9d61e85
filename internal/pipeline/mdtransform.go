package pipeline

import (
	"html"
	"regexp"
)

// Precompiled regex patterns for performance.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Two or more trailing spaces, which Markdown would turn into <br>
	trailingSpaces = regexp.MustCompile(` {2,}\n`)

	// Strikethrough syntax ~~text~~, single line
	strikethroughPattern = regexp.MustCompile(`~~([^~\n]+?)~~`)
)

// CleanLineEndings normalizes \r\n and \r to \n and drops runs of trailing
// spaces. Line breaks already render as <br>, so the hard-break marker only
// produces doubled breaks.
func CleanLineEndings(content string) string {
	content = crlfOrCR.ReplaceAllString(content, "\n")
	return trailingSpaces.ReplaceAllString(content, "\n")
}

// ExtractStrikethrough replaces ~~text~~ with strikethrough tokens.
func ExtractStrikethrough(content string, v *Vault) string {
	return strikethroughPattern.ReplaceAllStringFunc(content, func(match string) string {
		return v.Save(KindStrikethrough, strikethroughPattern.FindStringSubmatch(match)[1])
	})
}

// wrapStrikethrough renders a strikethrough payload.
func wrapStrikethrough(payload string) string {
	return "<del>" + payload + "</del>"
}

// diagramWrapper renders an escaped diagram payload as a code block tagged
// with the diagram language, which the client-side renderer picks up.
func diagramWrapper(lang string) func(string) string {
	open := `<pre><code class="language-` + html.EscapeString(lang) + `">`
	return func(payload string) string {
		return open + html.EscapeString(payload) + "</code></pre>"
	}
}

// wrapMathBlock renders a block formula, delimiters included.
func wrapMathBlock(payload string) string {
	return `<div class="math-block">` + payload + "</div>"
}

// wrapMathInline renders an inline formula, delimiters included.
func wrapMathInline(payload string) string {
	return `<span class="math-inline">` + payload + "</span>"
}
