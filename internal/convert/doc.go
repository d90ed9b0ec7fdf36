// Package convert turns document sources into HTML.
//
// AsciiDoc sources go through the asciidoctor executable, with the reveal.js
// backend for slide decks. Markdown sources are converted in-process with
// goldmark and wrapped in a standalone page. Set picks the converter from
// the source extension.
package convert
