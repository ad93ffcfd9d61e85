package markinote

import "github.com/markinote/markinote/internal/pipeline"

// Sentinel errors for rendering operations.
var (
	// ErrHTMLConversion is returned when the Markdown renderer fails.
	ErrHTMLConversion = pipeline.ErrHTMLConversion

	// ErrUnresolvedPlaceholder marks a token missing from rendered HTML.
	// It is reported through Result.Misses, never returned by Render.
	ErrUnresolvedPlaceholder = pipeline.ErrUnresolvedPlaceholder

	// ErrUnknownStyle is returned for a highlight style chroma does not know.
	ErrUnknownStyle = pipeline.ErrUnknownStyle
)
