package pipeline

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnresolvedPlaceholder marks a token that could not be located in the
// rendered HTML. It is reported, never returned from a render.
var ErrUnresolvedPlaceholder = errors.New("placeholder not found in rendered HTML")

// Kind identifies the content protected by a placeholder.
type Kind int

// Placeholder kinds, in restoration order.
const (
	KindStrikethrough Kind = iota
	KindDiagram
	KindMathBlock
	KindMathInline
	kindCount
)

// Kinds lists every placeholder kind in restoration order.
var Kinds = [...]Kind{KindStrikethrough, KindDiagram, KindMathBlock, KindMathInline}

// marker is the uppercase prefix embedded in every token of the kind.
// Tokens are letters and digits only so goldmark passes them through verbatim.
func (k Kind) marker() string {
	switch k {
	case KindStrikethrough:
		return "STRIKETHROUGH"
	case KindDiagram:
		return "DIAGRAMBLOCK"
	case KindMathBlock:
		return "MATHBLOCK"
	case KindMathInline:
		return "MATHINLINE"
	default:
		return "UNKNOWN"
	}
}

// String returns the lowercase kind name used in logs and stats.
func (k Kind) String() string {
	switch k {
	case KindStrikethrough:
		return "strikethrough"
	case KindDiagram:
		return "diagram"
	case KindMathBlock:
		return "math_block"
	case KindMathInline:
		return "math_inline"
	default:
		return "unknown"
	}
}

// wrapperVariants lists, per kind, the layouts in which goldmark may emit a
// token. Each entry is a format with a single %s-like slot written as "{}".
// They are tried in order and the first one present in the HTML wins.
var wrapperVariants = [kindCount][]string{
	KindStrikethrough: {"{}"},
	KindDiagram: {
		"<p>{}</p>",
		"<pre><code>{}</code></pre>",
		`<pre><code class="highlight">{}</code></pre>`,
		`<pre><code class="language-text">{}</code></pre>`,
		"{}",
	},
	KindMathBlock:  {"<p>{}</p>", "{}"},
	KindMathInline: {"{}"},
}

// Token returns the placeholder text for the entry at index of kind.
func Token(kind Kind, index int) string {
	return kind.marker() + "PLACEHOLDER" + strconv.Itoa(index) + "ENDPLACEHOLDER"
}

// Entry is one protected chunk of source text.
type Entry struct {
	Kind    Kind
	Index   int
	Payload string
}

// Miss records a token that RestoreAll could not find.
type Miss struct {
	Kind  Kind
	Index int
	Token string
	Err   error
}

// RestoreReport summarizes one RestoreAll call.
type RestoreReport struct {
	Kind     Kind
	Resolved int
	Misses   []Miss
	// Variants counts which wrapper layout matched, keyed by layout.
	Variants map[string]int
}

// Vault holds the protected chunks of one render, one ordered sequence per
// kind. The zero value is ready to use. A Vault must not outlive the render
// that created it.
type Vault struct {
	entries [kindCount][]string
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{}
}

// Save appends payload to the kind's sequence and returns its token.
func (v *Vault) Save(kind Kind, payload string) string {
	idx := len(v.entries[kind])
	v.entries[kind] = append(v.entries[kind], payload)
	return Token(kind, idx)
}

// Len returns the number of entries saved for kind.
func (v *Vault) Len(kind Kind) int {
	return len(v.entries[kind])
}

// Entries returns a copy of the kind's entries in index order.
func (v *Vault) Entries(kind Kind) []Entry {
	out := make([]Entry, len(v.entries[kind]))
	for i, p := range v.entries[kind] {
		out[i] = Entry{Kind: kind, Index: i, Payload: p}
	}
	return out
}

// RestoreAll replaces every token of kind in html with wrap(payload), in
// ascending index order. For each token the kind's wrapper variants are
// tried in priority order and the first one found verbatim is replaced.
// Tokens that are not found stay in the output and are listed in the report.
func (v *Vault) RestoreAll(html string, kind Kind, wrap func(payload string) string) (string, RestoreReport) {
	report := RestoreReport{Kind: kind, Variants: map[string]int{}}

	for i, payload := range v.entries[kind] {
		token := Token(kind, i)
		replaced := false

		for _, variant := range wrapperVariants[kind] {
			pattern := strings.Replace(variant, "{}", token, 1)
			if !strings.Contains(html, pattern) {
				continue
			}
			html = strings.ReplaceAll(html, pattern, wrap(payload))
			report.Variants[variant]++
			replaced = true
			break
		}

		if replaced {
			report.Resolved++
			continue
		}
		report.Misses = append(report.Misses, Miss{
			Kind:  kind,
			Index: i,
			Token: token,
			Err:   ErrUnresolvedPlaceholder,
		})
	}

	return html, report
}
