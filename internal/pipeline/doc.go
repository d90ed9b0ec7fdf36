// Package pipeline implements the text rewriting stages of the packager.
//
// The document is never parsed into a tree. Each reference category has a
// named Matcher that locates references by pattern and reports the byte span
// to substitute:
//   - stylesheet links, replaced by <style> blocks
//   - remote script sources, replaced by inline <script> blocks
//   - <img src>, inline style backgrounds and data-background-image values,
//     replaced by data URIs
//   - url() in CSS, replaced by data URIs (CSSRewriter)
//
// Fetching and encoding live in the resource package. A reference that
// cannot be embedded is reported through a Reporter and its markup is kept
// unchanged, so a pass always returns usable text.
package pipeline
