package pipeline

import (
	"regexp"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
)

// tokenPattern matches any placeholder token in protected text.
var tokenPattern = regexp.MustCompile(`(?:STRIKETHROUGH|DIAGRAMBLOCK|MATHBLOCK|MATHINLINE)PLACEHOLDER\d+ENDPLACEHOLDER`)

// headingIDs generates heading ids the goldmark way, with placeholder
// tokens removed first so they never reach id attributes or TOC links.
// One value serves one document.
type headingIDs struct {
	base parser.IDs
}

var _ parser.IDs = (*headingIDs)(nil)

func newHeadingIDs() *headingIDs {
	return &headingIDs{base: parser.NewContext().IDs()}
}

func (h *headingIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	return h.base.Generate(tokenPattern.ReplaceAll(value, nil), kind)
}

func (h *headingIDs) Put(value []byte) {
	h.base.Put(value)
}
