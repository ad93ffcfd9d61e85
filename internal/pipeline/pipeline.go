package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
)

// KindStats counts the tokens of one kind through a render.
type KindStats struct {
	Extracted int `json:"extracted"`
	Resolved  int `json:"resolved"`
	Missed    int `json:"missed"`
}

// Stats holds per-kind placeholder counts for one render.
type Stats map[string]KindStats

// Misses returns the total number of unresolved tokens.
func (s Stats) Misses() int {
	total := 0
	for _, ks := range s {
		total += ks.Missed
	}
	return total
}

// Result is the output of one render.
type Result struct {
	HTML  string
	Stats Stats
	// Misses lists every token left in HTML, in restoration order.
	Misses []Miss
}

// Options configures a Processor.
type Options struct {
	// DiagramLanguage is the fence language extracted as diagram source.
	// Defaults to DefaultDiagramLanguage.
	DiagramLanguage string
	// Logger receives per-kind counts and unresolved-token warnings.
	// Nil uses slog.Default() as it stands at each render.
	Logger *slog.Logger
	// Converter renders the protected Markdown. Defaults to a GoldmarkConverter.
	Converter HTMLConverter
}

// Processor runs the multi-pass Markdown rendering pipeline. It holds no
// per-render state and is safe for concurrent use.
type Processor struct {
	lang      string
	fence     *regexp.Regexp
	logger    *slog.Logger
	converter HTMLConverter
	wrappers  [kindCount]func(string) string
}

// NewProcessor creates a Processor from opts.
func NewProcessor(opts Options) *Processor {
	if opts.DiagramLanguage == "" {
		opts.DiagramLanguage = DefaultDiagramLanguage
	}
	if opts.Converter == nil {
		opts.Converter = NewGoldmarkConverter()
	}

	p := &Processor{
		lang:      opts.DiagramLanguage,
		fence:     diagramFencePattern(opts.DiagramLanguage),
		logger:    opts.Logger,
		converter: opts.Converter,
	}
	p.wrappers[KindStrikethrough] = wrapStrikethrough
	p.wrappers[KindDiagram] = diagramWrapper(opts.DiagramLanguage)
	p.wrappers[KindMathBlock] = wrapMathBlock
	p.wrappers[KindMathInline] = wrapMathInline
	return p
}

// DiagramLanguage returns the fence language treated as diagram source.
func (p *Processor) DiagramLanguage() string {
	return p.lang
}

// Protect runs every pre-render pass over content and returns the text
// handed to the renderer. The vault receives the extracted chunks.
func (p *Processor) Protect(content string, v *Vault) string {
	content = CleanLineEndings(content)
	content = ExtractDiagrams(content, p.fence, v)
	content = ExtractMath(content, v)
	content = NormalizeLists(content)
	return ExtractStrikethrough(content, v)
}

// Restore substitutes every vault entry back into rendered HTML and
// returns per-kind stats and the tokens that could not be found.
func (p *Processor) Restore(htmlContent string, v *Vault) (string, Stats, []Miss) {
	stats := make(Stats, len(Kinds))
	var misses []Miss

	for _, kind := range Kinds {
		var report RestoreReport
		htmlContent, report = v.RestoreAll(htmlContent, kind, p.wrappers[kind])
		stats[kind.String()] = KindStats{
			Extracted: v.Len(kind),
			Resolved:  report.Resolved,
			Missed:    len(report.Misses),
		}
		misses = append(misses, report.Misses...)
	}
	return htmlContent, stats, misses
}

// Process renders content to an HTML fragment. Unresolved placeholders are
// logged and reported in the result; only a renderer failure is an error.
func (p *Processor) Process(ctx context.Context, content string) (result *Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: panic: %v", ErrHTMLConversion, r)
		}
	}()

	v := NewVault()
	protected := p.Protect(content, v)

	htmlContent, err := p.converter.ToHTML(ctx, protected)
	if err != nil {
		return nil, err
	}

	htmlContent, stats, misses := p.Restore(htmlContent, v)
	p.report(ctx, stats, misses)

	return &Result{HTML: htmlContent, Stats: stats, Misses: misses}, nil
}

func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.Default()
	}
	return p.logger
}

// report logs per-kind counts at debug and every miss at warn.
func (p *Processor) report(ctx context.Context, stats Stats, misses []Miss) {
	logger := p.log()
	for _, kind := range Kinds {
		ks := stats[kind.String()]
		if ks.Extracted == 0 {
			continue
		}
		logger.DebugContext(ctx, "placeholders restored",
			slog.String("kind", kind.String()),
			slog.Int("extracted", ks.Extracted),
			slog.Int("resolved", ks.Resolved),
			slog.Int("missed", ks.Missed),
		)
	}
	for _, m := range misses {
		logger.WarnContext(ctx, "placeholder left unresolved",
			slog.String("kind", m.Kind.String()),
			slog.Int("index", m.Index),
			slog.String("token", m.Token),
			slog.Any("error", m.Err),
		)
	}
}
