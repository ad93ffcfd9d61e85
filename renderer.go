package markinote

import (
	"context"
	"log/slog"

	"github.com/markinote/markinote/internal/pipeline"
)

// Defaults applied by NewRenderer.
const (
	DefaultDiagramLanguage = pipeline.DefaultDiagramLanguage
	DefaultHighlightStyle  = pipeline.DefaultHighlightStyle
)

// Stats holds per-kind placeholder counts (extracted, resolved, missed),
// keyed by "strikethrough", "diagram", "math_block" and "math_inline".
type Stats = pipeline.Stats

// KindStats counts one placeholder kind.
type KindStats = pipeline.KindStats

// Result is the output of one render.
type Result struct {
	HTML  string
	Stats Stats
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger receiving per-kind counts and warnings for
// unresolved placeholders. By default they go to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDiagramLanguage sets the fence language treated as diagram source.
func WithDiagramLanguage(lang string) Option {
	return func(r *Renderer) {
		if lang != "" {
			r.diagramLanguage = lang
		}
	}
}

// WithHighlightStyle sets the chroma style returned by Renderer.CSS.
func WithHighlightStyle(style string) Option {
	return func(r *Renderer) {
		if style != "" {
			r.highlightStyle = style
		}
	}
}

// Renderer turns Markdown into an HTML fragment. It holds no per-render
// state and is safe for concurrent use.
type Renderer struct {
	logger          *slog.Logger
	diagramLanguage string
	highlightStyle  string
	processor       *pipeline.Processor
}

// NewRenderer creates a Renderer with the given options.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		diagramLanguage: DefaultDiagramLanguage,
		highlightStyle:  DefaultHighlightStyle,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.processor = pipeline.NewProcessor(pipeline.Options{
		DiagramLanguage: r.diagramLanguage,
		Logger:          r.logger,
	})
	return r
}

// Render converts markdown to HTML. Only a renderer failure or a canceled
// context is an error; unresolved placeholders are counted in Stats.
func (r *Renderer) Render(ctx context.Context, markdown string) (*Result, error) {
	res, err := r.processor.Process(ctx, markdown)
	if err != nil {
		return nil, err
	}
	return &Result{HTML: res.HTML, Stats: res.Stats}, nil
}

// Process renders markdown and returns the full pipeline result, so a
// Renderer can back the HTTP server and the PDF exporter.
func (r *Renderer) Process(ctx context.Context, markdown string) (*pipeline.Result, error) {
	return r.processor.Process(ctx, markdown)
}

// CSS returns the stylesheet for the renderer's highlight style.
func (r *Renderer) CSS() (string, error) {
	return HighlightCSS(r.highlightStyle)
}

// HighlightCSS returns the chroma stylesheet for style. An empty style
// selects DefaultHighlightStyle.
func HighlightCSS(style string) (string, error) {
	return pipeline.HighlightCSS(style)
}

// HighlightStyles lists the available chroma style names.
func HighlightStyles() []string {
	return pipeline.HighlightStyles()
}

var defaultRenderer = NewRenderer()

// RenderMarkdown renders markdown with the default options.
func RenderMarkdown(markdown string) (string, error) {
	res, err := defaultRenderer.Render(context.Background(), markdown)
	if err != nil {
		return "", err
	}
	return res.HTML, nil
}
