package convert

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/alnah/go-docpack/internal/assets"
	"github.com/alnah/go-docpack/internal/config"
	"github.com/alnah/go-docpack/internal/fileutil"
)

// page is the data handed to the document template.
type page struct {
	Lang      string
	Title     string
	Style     template.CSS
	Highlight template.CSS
	Body      template.HTML
}

// Markdown converts Markdown sources with goldmark and wraps the result in
// the document template. Safe for concurrent use.
type Markdown struct {
	md        goldmark.Markdown
	tmpl      *template.Template
	style     template.CSS
	highlight template.CSS
}

// NewMarkdown loads the configured style and template and prepares the
// goldmark pipeline. Unknown styles return assets.ErrStyleNotFound or
// ErrUnknownHighlightStyle.
func NewMarkdown(cfg config.MarkdownConfig) (*Markdown, error) {
	styleName := cfg.Style
	if styleName == "" {
		styleName = assets.DefaultStyleName
	}
	highlightName := cfg.HighlightStyle
	if highlightName == "" {
		highlightName = config.DefaultHighlightStyle
	}

	resolver, err := assets.NewAssetResolver(cfg.Assets)
	if err != nil {
		return nil, err
	}
	css, err := resolver.LoadStyle(styleName)
	if err != nil {
		return nil, err
	}
	tmplText, err := resolver.LoadTemplate(assets.DefaultTemplateName)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(assets.DefaultTemplateName).Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("%w: template %s: %v", ErrConvert, assets.DefaultTemplateName, err)
	}

	if !slices.Contains(styles.Names(), highlightName) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHighlightStyle, highlightName)
	}
	var chromaCSS bytes.Buffer
	if err := html.New(html.WithClasses(true)).WriteCSS(&chromaCSS, styles.Get(highlightName)); err != nil {
		return nil, fmt.Errorf("%w: highlight css: %v", ErrConvert, err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithStyle(highlightName),
				highlighting.WithFormatOptions(
					html.WithClasses(true), // pairs with the stylesheet written above
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	return &Markdown{
		md:        md,
		tmpl:      tmpl,
		style:     template.CSS(css),               // #nosec G203 -- stylesheet chosen by the user
		highlight: template.CSS(chromaCSS.String()), // #nosec G203 -- generated by chroma
	}, nil
}

// Convert renders src into a standalone HTML page at dst. The page title is
// the text of the first heading, or the file name when there is none.
// Goldmark does not take a context, so cancellation is honored by racing
// the render against ctx.
func (m *Markdown) Convert(ctx context.Context, src, dst string, _ Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(src) // #nosec G304 -- source discovered by the build
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConvert, err)
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		out, err := m.Render(string(data), strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)))
		done <- result{html: out, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConvert, src, r.err)
	}

	if err := fileutil.WriteFileAtomic(dst, []byte(r.html)); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrConvert, dst, err)
	}
	return "", nil
}

// Render converts Markdown text into a complete HTML page. fallbackTitle is
// used when the text has no heading.
func (m *Markdown) Render(content, fallbackTitle string) (string, error) {
	source := []byte(preprocessMarkdown(content))
	doc := m.md.Parser().Parse(text.NewReader(source))

	title := firstHeading(doc, source)
	if title == "" {
		title = fallbackTitle
	}

	var body bytes.Buffer
	if err := m.md.Renderer().Render(&body, source, doc); err != nil {
		return "", err
	}

	var out bytes.Buffer
	err := m.tmpl.Execute(&out, page{
		Lang:      "en",
		Title:     title,
		Style:     m.style,
		Highlight: m.highlight,
		Body:      template.HTML(convertMarkPlaceholders(body.String())), // #nosec G203 -- goldmark escapes raw HTML
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// firstHeading returns the plain text of the first heading in doc.
func firstHeading(doc ast.Node, source []byte) string {
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			title = plainText(h, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.NewReplacer(markStart, "", markEnd, "").Replace(strings.TrimSpace(title))
}

// plainText concatenates the text segments below n.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// Compile-time interface check.
var _ Converter = (*Markdown)(nil)
