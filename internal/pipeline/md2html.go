package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// HighlightClass is the CSS class wrapping highlighted code blocks.
const HighlightClass = "highlight"

// DefaultHighlightStyle is the chroma style used for the exported stylesheet.
const DefaultHighlightStyle = "github"

// HTMLConverter abstracts Markdown to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// GoldmarkConverter renders Markdown fragments with goldmark using a fixed
// extension set: tables, footnotes, definition lists, attribute lists,
// abbreviations, class-based syntax highlighting, hard line breaks and a
// [TOC] marker. It is safe for concurrent use.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter.
func NewGoldmarkConverter() *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Footnote,
			extension.DefinitionList,
			highlighting.NewHighlighting(
				highlighting.WithGuessLanguage(true),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
					chromahtml.WithLineNumbers(false),
				),
				highlighting.WithWrapperRenderer(codeBlockWrapper),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(), // Heading IDs for [TOC] links
			parser.WithAttribute(),     // {#id .class} on headings
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(), // Treat newlines as <br>
			html.WithXHTML(),     // Self-closing tags
			html.WithUnsafe(),    // Raw HTML in notes passes through
		),
	)
	return &GoldmarkConverter{md: md}
}

// codeBlockWrapper wraps highlighted blocks in the highlight container and
// writes a plain language-tagged block when the highlighter gave up.
func codeBlockWrapper(w util.BufWriter, ctx highlighting.CodeBlockContext, entering bool) {
	if ctx.Highlighted() {
		if entering {
			_, _ = w.WriteString(`<div class="` + HighlightClass + `">`)
		} else {
			_, _ = w.WriteString("</div>\n")
		}
		return
	}

	if !entering {
		_, _ = w.WriteString("</code></pre>\n")
		return
	}
	_, _ = w.WriteString("<pre><code")
	if lang, ok := ctx.Language(); ok && len(bytes.TrimSpace(lang)) > 0 {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_, _ = w.WriteString(`"`)
	}
	_, _ = w.WriteString(">")
}

// ToHTML converts Markdown content to an HTML fragment.
// Goldmark has no context support; the context is checked before and after.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, abbrs := extractAbbreviations(content)

	var buf bytes.Buffer
	pc := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	if err := c.md.Convert([]byte(content), &buf, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}

	out := injectTOC(buf.String())

	out, err := applyAbbreviations(out, abbrs)
	if err != nil {
		return "", fmt.Errorf("%w: abbreviations: %v", ErrHTMLConversion, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
