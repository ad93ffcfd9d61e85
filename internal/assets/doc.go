// Package assets provides the stylesheets and HTML page templates used to
// present rendered notes.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in assets)
//	    ├── FilesystemLoader  - loads from a custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// The server and the PDF exporter load through an AssetResolver, so a user
// directory can override the note stylesheet or a page template while the
// rest keeps the built-in version.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css           # e.g. note.css
//	└── templates/
//	    └── {name}.html          # document.html, index.html
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
