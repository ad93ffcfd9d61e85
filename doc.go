// Package markinote renders Markdown notes to HTML fragments with math and
// diagram support.
//
// # Quick Start
//
// The one-shot form uses the default options:
//
//	html, err := markinote.RenderMarkdown("# Notes\n\n$$E = mc^2$$")
//
// A Renderer is reusable and safe for concurrent use:
//
//	r := markinote.NewRenderer(
//	    markinote.WithLogger(logger),
//	    markinote.WithDiagramLanguage("mermaid"),
//	)
//	result, err := r.Render(ctx, content)
//	fmt.Println(result.HTML, result.Stats.Misses())
//
// # Rendering Pipeline
//
// Content the Markdown renderer would mangle is lifted out before rendering
// and put back afterwards:
//
//  1. Diagram fences and math (in $$, \[ \], \( \), $ and bare LaTeX lines)
//     are replaced by opaque placeholder tokens.
//  2. List indentation is normalized so two-space nesting renders as nested lists.
//  3. ~~strike~~ spans are protected and the text is rendered with goldmark
//     (GFM tables, footnotes, heading IDs, [TOC], abbreviations, hard wraps).
//  4. Every token is substituted back: diagrams as language-tagged code blocks,
//     math with its delimiters intact for a client-side typesetter.
//
// Tokens the renderer dropped are logged at warn level and counted in
// Result.Stats; they never fail a render.
//
// # Highlighting
//
// Code blocks carry chroma classes. HighlightCSS returns the matching
// stylesheet for a named chroma style.
package markinote
