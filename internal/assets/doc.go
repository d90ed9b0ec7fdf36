// Package assets provides the CSS styles and HTML templates used to wrap
// converted Markdown into a complete document.
//
// # Loader Architecture
//
// The package implements a layered loading system:
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in styles)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// AssetResolver is the loader used by the Markdown converter. It tries the
// custom FilesystemLoader first, falling back to EmbeddedLoader if the asset
// is not found. This enables overriding one asset while keeping the others.
//
// # Directory Structure
//
//	<markdown.assets>/
//	├── styles/
//	│   └── {name}.css        # Document styles (e.g., minimal.css)
//	└── templates/
//	    └── {name}.html       # Page templates (e.g., document.html)
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within the asset directory.
package assets
