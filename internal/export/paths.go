package export

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/markinote/markinote/internal/htmldom"
)

// RewriteRelativePaths converts relative img[src] and a[href] values to
// file:// URLs under sourceDir. URLs, anchors, absolute paths and paths that
// would leave sourceDir are left as written. An empty sourceDir is a no-op.
func RewriteRelativePaths(htmlContent, sourceDir string) (string, error) {
	if sourceDir == "" {
		return htmlContent, nil
	}

	absSourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}

	doc, err := htmldom.Parse(htmlContent)
	if err != nil {
		return "", err
	}

	htmldom.Walk(doc.Root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.DataAtom {
		case atom.Img:
			rewriteAttr(n, "src", absSourceDir)
		case atom.A:
			rewriteAttr(n, "href", absSourceDir)
		}
		return true
	})

	return doc.Render()
}

// rewriteAttr rewrites a single attribute if it holds a relative path.
func rewriteAttr(n *html.Node, attrName, sourceDir string) {
	for i, attr := range n.Attr {
		if attr.Key != attrName || !isRelativePath(attr.Val) {
			continue
		}

		// Links carry percent-encoded paths; decode before joining.
		rel := attr.Val
		if decoded, err := url.PathUnescape(rel); err == nil {
			rel = decoded
		}
		absPath := filepath.Join(sourceDir, filepath.FromSlash(rel))
		if !isPathUnderDir(absPath, sourceDir) {
			continue
		}
		n.Attr[i].Val = pathToFileURL(absPath)
	}
}

// isRelativePath returns true if the path should be rewritten.
func isRelativePath(path string) bool {
	if path == "" || strings.HasPrefix(path, "#") || strings.HasPrefix(path, "//") {
		return false
	}
	if u, err := url.Parse(path); err == nil && u.Scheme != "" {
		// Single-letter schemes are Windows drive letters.
		if len(u.Scheme) > 1 {
			return false
		}
	}
	return !filepath.IsAbs(path) && !strings.HasPrefix(path, "/")
}

// isPathUnderDir reports whether absPath is dir or inside it.
func isPathUnderDir(absPath, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(absPath))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// pathToFileURL converts an absolute path to a file:// URL.
func pathToFileURL(absPath string) string {
	p := filepath.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		// C:/docs -> /C:/docs
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}
