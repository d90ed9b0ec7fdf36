package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Sentinel errors for conversion.
var (
	ErrConvert           = errors.New("conversion failed")
	ErrConverterNotFound = errors.New("converter not found")
	ErrRevealJSMissing   = errors.New("reveal.js backend not available")
	ErrUnsupportedSource = errors.New("unsupported source type")

	ErrUnknownHighlightStyle = errors.New("unknown highlight style")
)

// Options tune a single conversion.
type Options struct {
	// Slides selects the presentation backend when the converter has one.
	Slides bool
}

// Converter writes the HTML rendition of src to dst. The returned string
// holds diagnostics the converter printed on success; it is empty when
// there were none.
type Converter interface {
	Convert(ctx context.Context, src, dst string, opts Options) (warnings string, err error)
}

// Source kinds by extension.
var (
	asciidocExts = []string{".adoc", ".asciidoc", ".asc"}
	markdownExts = []string{".md", ".markdown"}
)

// IsAsciiDoc reports whether path has an AsciiDoc extension.
func IsAsciiDoc(path string) bool {
	return hasExt(path, asciidocExts)
}

// IsMarkdown reports whether path has a Markdown extension.
func IsMarkdown(path string) bool {
	return hasExt(path, markdownExts)
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Set dispatches to the converter registered for a source's extension.
// A nil member makes its sources unsupported.
type Set struct {
	AsciiDoc Converter
	Markdown Converter
}

// For returns the converter for src.
func (s *Set) For(src string) (Converter, error) {
	switch {
	case IsAsciiDoc(src) && s.AsciiDoc != nil:
		return s.AsciiDoc, nil
	case IsMarkdown(src) && s.Markdown != nil:
		return s.Markdown, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, filepath.Base(src))
}

// Convert converts src with the converter its extension selects.
func (s *Set) Convert(ctx context.Context, src, dst string, opts Options) (string, error) {
	c, err := s.For(src)
	if err != nil {
		return "", err
	}
	return c.Convert(ctx, src, dst, opts)
}

// Compile-time interface check.
var _ Converter = (*Set)(nil)
