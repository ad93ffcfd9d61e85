package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
)

// DefaultLang is the document language when none is given.
const DefaultLang = "en"

// PageData fills the document template.
type PageData struct {
	Title string
	Lang  string
	// Body is trusted HTML produced by the rendering pipeline.
	Body template.HTML
}

// DocumentBuilder wraps rendered note fragments in a standalone page.
type DocumentBuilder struct {
	tmpl *template.Template
}

// NewDocumentBuilder parses the document template.
func NewDocumentBuilder(tmplContent string) (*DocumentBuilder, error) {
	tmpl, err := template.New("document").Parse(tmplContent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return &DocumentBuilder{tmpl: tmpl}, nil
}

// Build renders the page for a note body and injects each stylesheet.
func (b *DocumentBuilder) Build(ctx context.Context, data PageData, stylesheets ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if data.Lang == "" {
		data.Lang = DefaultLang
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	page := buf.String()
	for _, css := range stylesheets {
		page = InjectCSS(page, css)
	}
	return page, nil
}

// InjectCSS inserts a <style> block before </head>, after <body>, or at the
// start of the HTML, whichever is found first. Empty CSS is a no-op.
func InjectCSS(htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>\n"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes "</" so the stylesheet cannot close its <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
