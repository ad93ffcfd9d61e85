package assets

import "fmt"

// Built-in asset names.
const (
	// NoteStyle is the base stylesheet for rendered notes.
	NoteStyle = "note"
	// DocumentTemplate wraps a rendered note in a standalone HTML5 page.
	DocumentTemplate = "document"
	// IndexTemplate is the landing page served at the API root.
	IndexTemplate = "index"
)

// defaultLoader is the package-level embedded loader.
var defaultLoader = NewEmbeddedLoader()

// LoadStyle loads a CSS file by name using the default embedded loader.
// The name should not include the .css extension or path components.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// LoadTemplate loads an HTML template by name using the default embedded loader.
// The name should not include the .html extension or path components.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}

// AssetLoader defines the contract for loading CSS styles and HTML templates.
type AssetLoader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	LoadStyle(name string) (string, error)

	// LoadTemplate loads an HTML template by name (without .html extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	LoadTemplate(name string) (string, error)
}

// assetKind describes where one type of asset lives and how it is named.
type assetKind struct {
	dir      string
	ext      string
	notFound error
}

var (
	styleAsset    = assetKind{dir: "styles", ext: ".css", notFound: ErrStyleNotFound}
	templateAsset = assetKind{dir: "templates", ext: ".html", notFound: ErrTemplateNotFound}
)

// relPath returns the slash-separated path of a named asset.
func (k assetKind) relPath(name string) string {
	return k.dir + "/" + name + k.ext
}

// ValidateAssetName checks that an asset name is a bare file stem made of
// letters, digits, '-' and '_'. Separators and dots are rejected so a name can
// neither leave its directory nor change its extension.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
		}
	}
	return nil
}
