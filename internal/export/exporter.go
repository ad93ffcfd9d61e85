package export

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/markinote/markinote/internal/assets"
	"github.com/markinote/markinote/internal/pipeline"
)

// NoteRenderer renders Markdown to an HTML fragment.
type NoteRenderer interface {
	Process(ctx context.Context, content string) (*pipeline.Result, error)
}

// Compile-time interface check.
var _ NoteRenderer = (*pipeline.Processor)(nil)

// Note is the input of one export.
type Note struct {
	Title    string
	Markdown string
	// SourceDir resolves relative image and link paths. Empty skips rewriting.
	SourceDir string
}

// Options configures an Exporter.
type Options struct {
	Renderer NoteRenderer
	// Assets supplies the document template and note stylesheet.
	// Defaults to the embedded assets.
	Assets assets.AssetLoader
	// HighlightStyle names the chroma style injected for code blocks.
	HighlightStyle string
	// Printer prints the page. Defaults to a ChromePrinter.
	Printer Printer
	// Timeout is used by the default Printer.
	Timeout time.Duration
}

// Exporter turns notes into standalone HTML pages and PDFs. It is safe for
// concurrent use; Close releases the browser.
type Exporter struct {
	renderer NoteRenderer
	builder  *DocumentBuilder
	styles   []string
	printer  Printer
}

// New creates an Exporter, loading its template and stylesheets up front.
func New(opts Options) (*Exporter, error) {
	if opts.Renderer == nil {
		opts.Renderer = pipeline.NewProcessor(pipeline.Options{})
	}
	if opts.Assets == nil {
		opts.Assets = assets.NewEmbeddedLoader()
	}

	tmpl, err := opts.Assets.LoadTemplate(assets.DocumentTemplate)
	if err != nil {
		return nil, err
	}
	builder, err := NewDocumentBuilder(tmpl)
	if err != nil {
		return nil, err
	}

	noteCSS, err := opts.Assets.LoadStyle(assets.NoteStyle)
	if err != nil {
		return nil, err
	}
	highlightCSS, err := pipeline.HighlightCSS(opts.HighlightStyle)
	if err != nil {
		return nil, err
	}

	if opts.Printer == nil {
		opts.Printer = NewChromePrinter(opts.Timeout)
	}

	return &Exporter{
		renderer: opts.Renderer,
		builder:  builder,
		styles:   []string{noteCSS, highlightCSS},
		printer:  opts.Printer,
	}, nil
}

// HTML renders a note into a standalone page with styles and rewritten paths.
func (e *Exporter) HTML(ctx context.Context, note Note) (string, error) {
	result, err := e.renderer.Process(ctx, note.Markdown)
	if err != nil {
		return "", err
	}

	body, err := RewriteRelativePaths(result.HTML, note.SourceDir)
	if err != nil {
		return "", fmt.Errorf("rewriting paths: %w", err)
	}

	// #nosec G203 -- body is pipeline output, raw HTML in notes is allowed
	return e.builder.Build(ctx, PageData{Title: note.Title, Body: template.HTML(body)}, e.styles...)
}

// PDF renders a note and prints it.
func (e *Exporter) PDF(ctx context.Context, note Note) ([]byte, error) {
	page, err := e.HTML(ctx, note)
	if err != nil {
		return nil, err
	}
	return e.printer.PrintPDF(ctx, page)
}

// Close releases the printer.
func (e *Exporter) Close() error {
	return e.printer.Close()
}
